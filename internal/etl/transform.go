package etl

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ── Transformer ────────────────────────────────────────────
// A feed query runs each record through a chain of transformers before it
// reaches the data view. A transformer returns the record to pass on and
// false to drop it.

type Transformer interface {
	Transform(Record) (Record, bool)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(Record) (Record, bool)

func (f TransformerFunc) Transform(r Record) (Record, bool) { return f(r) }

// ── Row filters ────────────────────────────────────────────

// FilterOp names a comparison of a record field against a constant.
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpNeq      FilterOp = "neq"
	OpGt       FilterOp = "gt"
	OpGte      FilterOp = "gte"
	OpLt       FilterOp = "lt"
	OpLte      FilterOp = "lte"
	OpContains FilterOp = "contains"
	OpEmpty    FilterOp = "empty"
	OpNotEmpty FilterOp = "not_empty"
)

// FilterTransform keeps records whose Field satisfies Op against Value.
// Records without the field are dropped, except by OpEmpty. Unknown ops
// keep everything.
type FilterTransform struct {
	Field string
	Op    FilterOp
	Value any
}

func (t *FilterTransform) Transform(r Record) (Record, bool) {
	v, ok := r[t.Field]
	if t.Op == OpEmpty {
		return r, !ok || v == nil || fmt.Sprint(v) == ""
	}
	if !ok {
		return r, false
	}
	switch t.Op {
	case OpEq:
		return r, fmt.Sprint(v) == fmt.Sprint(t.Value)
	case OpNeq:
		return r, fmt.Sprint(v) != fmt.Sprint(t.Value)
	case OpContains:
		return r, strings.Contains(fmt.Sprint(v), fmt.Sprint(t.Value))
	case OpNotEmpty:
		return r, v != nil && fmt.Sprint(v) != ""
	case OpGt:
		return r, compareValues(v, t.Value) > 0
	case OpGte:
		return r, compareValues(v, t.Value) >= 0
	case OpLt:
		return r, compareValues(v, t.Value) < 0
	case OpLte:
		return r, compareValues(v, t.Value) <= 0
	}
	return r, true
}

// DedupeTransform keeps the first record for each value of Key.
type DedupeTransform struct {
	Key  string
	seen map[string]struct{}
}

func NewDedupeTransform(key string) *DedupeTransform {
	return &DedupeTransform{Key: key, seen: map[string]struct{}{}}
}

func (t *DedupeTransform) Transform(r Record) (Record, bool) {
	k := fmt.Sprint(r[t.Key])
	if _, dup := t.seen[k]; dup {
		return r, false
	}
	t.seen[k] = struct{}{}
	return r, true
}

// LimitTransform passes the first Count records.
type LimitTransform struct {
	Count int
	n     int
}

func NewLimitTransform(count int) *LimitTransform {
	return &LimitTransform{Count: count}
}

func (t *LimitTransform) Transform(r Record) (Record, bool) {
	if t.n >= t.Count {
		return r, false
	}
	t.n++
	return r, true
}

// ── Column shaping ─────────────────────────────────────────

// RenameTransform renames columns; Mapping is old name to new name.
type RenameTransform struct {
	Mapping map[string]string
}

func (t *RenameTransform) Transform(r Record) (Record, bool) {
	for from, to := range t.Mapping {
		v, ok := r[from]
		if !ok || from == to {
			continue
		}
		r[to] = v
		delete(r, from)
	}
	return r, true
}

// SelectTransform projects the record onto Fields.
type SelectTransform struct {
	Fields []string
}

func (t *SelectTransform) Transform(r Record) (Record, bool) {
	out := make(Record, len(t.Fields))
	for _, f := range t.Fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out, true
}

// ComputeColumn is a derived column. Expression is a template such as
// "{region} / {month}"; a result that parses as a number is stored as one.
type ComputeColumn struct {
	Name       string
	Expression string
}

// ComputeTransform adds derived columns, in order, so later columns may
// reference earlier ones.
type ComputeTransform struct {
	Columns []ComputeColumn
}

func (t *ComputeTransform) Transform(r Record) (Record, bool) {
	for _, col := range t.Columns {
		if col.Name != "" && col.Expression != "" {
			r[col.Name] = expand(col.Expression, r)
		}
	}
	return r, true
}

func expand(expr string, r Record) any {
	pairs := make([]string, 0, 2*len(r))
	for k, v := range r {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	s := strings.NewReplacer(pairs...).Replace(expr)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// TypeCastTransform coerces Field to "number", "string" or "bool".
type TypeCastTransform struct {
	Field    string
	CastType string
}

func (t *TypeCastTransform) Transform(r Record) (Record, bool) {
	v, ok := r[t.Field]
	if !ok {
		return r, true
	}
	switch t.CastType {
	case "number":
		r[t.Field] = toFloat(v)
	case "string":
		r[t.Field] = fmt.Sprint(v)
	case "bool":
		r[t.Field] = truthy(v)
	}
	return r, true
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if strings.EqualFold(b, "yes") {
			return true
		}
		ok, _ := strconv.ParseBool(b)
		return ok
	}
	f, ok := toFloatSafe(v)
	return ok && f != 0
}

// ── Ordering ───────────────────────────────────────────────

// SortTransform orders the whole result by Field ("asc" or "desc"). It is
// a pass-through per record; ApplyBatchSort applies it once all records
// are in.
type SortTransform struct {
	Field     string
	Direction string
}

func (t *SortTransform) Transform(r Record) (Record, bool) { return r, true }

// ApplyBatchSort applies the first SortTransform of ts to a copy of records.
// The sort is stable; numbers compare numerically, everything else as text.
func ApplyBatchSort(records []Record, ts []Transformer) []Record {
	for _, t := range ts {
		st, ok := t.(*SortTransform)
		if !ok || st.Field == "" {
			continue
		}
		sorted := slices.Clone(records)
		slices.SortStableFunc(sorted, func(a, b Record) int {
			c := compareValues(a[st.Field], b[st.Field])
			if st.Direction == "desc" {
				return -c
			}
			return c
		})
		return sorted
	}
	return records
}

// ApplyTransformers runs r through ts, stopping at the first drop.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool) {
	for _, t := range ts {
		var keep bool
		if r, keep = t.Transform(r); !keep {
			return r, false
		}
	}
	return r, true
}

// ── Value helpers ──────────────────────────────────────────

func compareValues(a, b any) int {
	fa, okA := toFloatSafe(a)
	fb, okB := toFloatSafe(b)
	if !okA || !okB {
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func toFloatSafe(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toFloat(v any) float64 {
	f, _ := toFloatSafe(v)
	return f
}
