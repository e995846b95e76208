package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ── Query ──────────────────────────────────────────────────
// The source query of a data view bound to a feed connection. "*" reads
// every record; otherwise it is a JSON object:
//
//	{"path": "data.items", "transforms": [{"type": "filter", "config": {...}}]}

// Query selects and reshapes the records of a feed.
type Query struct {
	// Path is a dot-separated path to the record array (json, http).
	Path       string            `json:"path,omitempty"`
	Transforms []TransformConfig `json:"transforms,omitempty"`
	DedupeKey  string            `json:"dedupeKey,omitempty"`
}

// TransformConfig is a declarative transform definition.
type TransformConfig struct {
	Type   string         `json:"type"` // "filter" | "rename" | "select" | "compute" | "sort" | "limit" | "type_cast"
	Config map[string]any `json:"config"`
}

// ParseQuery reads a data view query.
func ParseQuery(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return Query{}, nil
	}
	var q Query
	if err := json.Unmarshal([]byte(s), &q); err != nil {
		return Query{}, fmt.Errorf("parse feed query: %w", err)
	}
	return q, nil
}

// Run discovers the schema of src, reads every record, pushes it through
// the query's transforms and returns the kept records in order.
func Run(ctx context.Context, src Source, cfg SourceConfig, q Query) ([]Record, *Schema, error) {
	if q.Path != "" {
		merged := make(SourceConfig, len(cfg)+1)
		for k, v := range cfg {
			merged[k] = v
		}
		merged["dataPath"] = q.Path
		cfg = merged
	}

	schema, err := src.Discover(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("discover %s: %w", src.Spec().Type, err)
	}

	recCh, errCh := src.Read(ctx, cfg)
	transformers := BuildTransformers(q.Transforms, q.DedupeKey)

	var records []Record
	for rec := range recCh {
		if out, keep := ApplyTransformers(rec, transformers); keep {
			records = append(records, out)
		}
	}
	if err := <-errCh; err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", src.Spec().Type, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return ApplyBatchSort(records, transformers), schema, nil
}

// BuildTransformers converts declarative configs into Transformer instances.
// Unknown or incomplete configs are skipped.
func BuildTransformers(configs []TransformConfig, dedupeKey string) []Transformer {
	var ts []Transformer

	for _, tc := range configs {
		switch tc.Type {
		case "filter":
			field, _ := tc.Config["field"].(string)
			op, _ := tc.Config["op"].(string)
			if field != "" && op != "" {
				ts = append(ts, &FilterTransform{Field: field, Op: FilterOp(op), Value: tc.Config["value"]})
			}

		case "rename":
			if mapping, ok := tc.Config["mapping"].(map[string]any); ok {
				m := make(map[string]string, len(mapping))
				for k, v := range mapping {
					m[k] = fmt.Sprint(v)
				}
				ts = append(ts, &RenameTransform{Mapping: m})
			}

		case "select":
			if fields, ok := tc.Config["fields"].([]any); ok {
				var ff []string
				for _, f := range fields {
					ff = append(ff, fmt.Sprint(f))
				}
				ts = append(ts, &SelectTransform{Fields: ff})
			}

		case "compute":
			if columns, ok := tc.Config["columns"].([]any); ok {
				var cols []ComputeColumn
				for _, c := range columns {
					if cm, ok := c.(map[string]any); ok {
						name, _ := cm["name"].(string)
						expr, _ := cm["expression"].(string)
						if name != "" && expr != "" {
							cols = append(cols, ComputeColumn{Name: name, Expression: expr})
						}
					}
				}
				if len(cols) > 0 {
					ts = append(ts, &ComputeTransform{Columns: cols})
				}
			}

		case "sort":
			field, _ := tc.Config["field"].(string)
			direction, _ := tc.Config["direction"].(string)
			if direction == "" {
				direction = "asc"
			}
			if field != "" {
				ts = append(ts, &SortTransform{Field: field, Direction: direction})
			}

		case "limit":
			if count, ok := tc.Config["count"].(float64); ok && count > 0 {
				ts = append(ts, NewLimitTransform(int(count)))
			}

		case "type_cast":
			field, _ := tc.Config["field"].(string)
			castType, _ := tc.Config["castType"].(string)
			if field != "" && castType != "" {
				ts = append(ts, &TypeCastTransform{Field: field, CastType: castType})
			}
		}
	}

	// Dedupe always runs last
	if dedupeKey != "" {
		ts = append(ts, NewDedupeTransform(dedupeKey))
	}

	return ts
}

// columnsOf lists the keys present in records. Source schema order comes
// first; keys added by transforms follow in order of appearance.
func columnsOf(records []Record, schema *Schema) []string {
	present := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			present[k] = true
		}
	}

	var cols []string
	seen := make(map[string]bool)
	if schema != nil {
		for _, name := range schema.FieldNames() {
			if present[name] && !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	for _, r := range records {
		var extra []string
		for k := range r {
			if !seen[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return cols
}
