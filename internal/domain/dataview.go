package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// ViewType selects how a data view renders its records.
type ViewType string

const (
	ViewTable ViewType = "table"
	ViewBar   ViewType = "bar"
	ViewLine  ViewType = "line"
	ViewPie   ViewType = "pie"
)

// Record is one flat row of a data view.
type Record map[string]any

type ColumnDef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type DataViewConfig struct {
	XAxisKey     string      `json:"xAxisKey,omitempty"`
	YAxisKeys    []string    `json:"yAxisKeys,omitempty"`
	SeriesColors []string    `json:"seriesColors,omitempty"`
	Columns      []ColumnDef `json:"columns,omitempty"`
}

// DataSource binds a data view to a query on a saved data connection.
// A refresh replaces Data with the query result.
type DataSource struct {
	ConnectionID string `json:"connectionId"`
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
}

type DataView struct {
	ViewType ViewType       `json:"viewType"`
	Title    string         `json:"title,omitempty"`
	Data     []Record       `json:"data"`
	Config   DataViewConfig `json:"config"`
	Formulas []Formula      `json:"formulas,omitempty"`
	Source   *DataSource    `json:"source,omitempty"`
}

// FormulaType is an aggregate computed over one data view column.
type FormulaType string

const (
	FormulaSum      FormulaType = "sum"
	FormulaAverage  FormulaType = "average"
	FormulaMin      FormulaType = "min"
	FormulaMax      FormulaType = "max"
	FormulaVariance FormulaType = "variance"
)

type Formula struct {
	Type  FormulaType `json:"type"`
	Key   string      `json:"key"`
	Label string      `json:"label,omitempty"`
}

// FormulaResult is a computed formula ready for display.
type FormulaResult struct {
	Label string  `json:"label"`
	Key   string  `json:"key"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Evaluate computes the formula over records. Values that are not numeric
// are ignored; an empty column yields 0. Variance is the population variance.
func (f Formula) Evaluate(records []Record) float64 {
	values := numericColumn(records, f.Key)
	if len(values) == 0 {
		return 0
	}

	var (
		v   float64
		err error
	)
	switch f.Type {
	case FormulaSum:
		v, err = stats.Sum(values)
	case FormulaAverage:
		v, err = stats.Mean(values)
	case FormulaMin:
		v, err = stats.Min(values)
	case FormulaMax:
		v, err = stats.Max(values)
	case FormulaVariance:
		v, err = stats.PopulationVariance(values)
	default:
		return 0
	}
	if err != nil {
		return 0
	}
	return v
}

// DisplayLabel is the label shown next to the result.
func (f Formula) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return string(f.Type) + " of " + f.Key
}

// Results evaluates every formula of the view.
func (d DataView) Results() []FormulaResult {
	out := make([]FormulaResult, 0, len(d.Formulas))
	for _, f := range d.Formulas {
		out = append(out, FormulaResult{
			Label: f.DisplayLabel(),
			Key:   f.Key,
			Type:  string(f.Type),
			Value: f.Evaluate(d.Data),
		})
	}
	return out
}

func numericColumn(records []Record, key string) stats.Float64Data {
	var out stats.Float64Data
	for _, r := range records {
		v, present := r[key]
		if !present {
			continue
		}
		if n, ok := toNumber(v); ok {
			out = append(out, n)
		}
	}
	return out
}

// toNumber coerces a cell the way a spreadsheet-style column would: null and
// blank strings count as 0, booleans as 0 or 1, numeric strings parse.
// Anything else (text, nested values, NaN) is not a number.
func toNumber(v any) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case nil:
		return 0, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case float64:
		n = val
	case float32:
		n = float64(val)
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case int32:
		n = float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// Keys returns the field names of the first record, sorted.
func (d DataView) Keys() []string {
	if len(d.Data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.Data[0]))
	for k := range d.Data[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
