package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"reports/internal/etl"
)

// stream sends records on a buffered channel until done or ctx ends. It
// backs Read for the sources that load everything up front.
func stream(ctx context.Context, load func() ([]etl.Record, error)) (<-chan etl.Record, <-chan error) {
	out := make(chan etl.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		records, err := load()
		if err != nil {
			errCh <- err
			return
		}
		for _, rec := range records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

// navigatePath walks a dot-separated path into nested maps.
func navigatePath(obj any, path string) (any, error) {
	current := obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", part)
		}
		current = m[part]
	}
	return current, nil
}

// decodeRecords parses a JSON document and returns the records at the
// configured dataPath.
func decodeRecords(data []byte, cfg etl.SourceConfig) ([]etl.Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dataPath, _ := cfg["dataPath"].(string); dataPath != "" {
		var err error
		if raw, err = navigatePath(raw, dataPath); err != nil {
			return nil, err
		}
	}
	return toRecords(raw), nil
}

// toRecords converts a raw JSON value into records. An object is a single
// record; anything else yields none.
func toRecords(raw any) []etl.Record {
	switch v := raw.(type) {
	case []any:
		records := make([]etl.Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, flattenMap(m))
			}
		}
		return records
	case map[string]any:
		return []etl.Record{flattenMap(v)}
	default:
		return nil
	}
}

// flattenMap keeps scalar values and serializes nested objects and arrays
// as JSON strings.
func flattenMap(m map[string]any) etl.Record {
	flat := make(etl.Record, len(m))
	for k, v := range m {
		switch v.(type) {
		case string, float64, bool, nil:
			flat[k] = v
		default:
			b, _ := json.Marshal(v)
			flat[k] = string(b)
		}
	}
	return flat
}

// inferSchema infers a schema from records, fields sorted by name.
func inferSchema(records []etl.Record) *etl.Schema {
	fieldSet := make(map[string]string)
	for _, rec := range records {
		for k, v := range rec {
			if _, exists := fieldSet[k]; !exists || fieldSet[k] == "text" && v != nil {
				fieldSet[k] = inferType(v)
			}
		}
	}

	names := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := &etl.Schema{}
	for _, name := range names {
		schema.Fields = append(schema.Fields, etl.Field{Name: name, Type: fieldSet[name]})
	}
	return schema
}

func inferType(v any) string {
	if v == nil {
		return "text"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Float64, reflect.Float32, reflect.Int, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "text"
	}
}
