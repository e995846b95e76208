package etl

import "reports/internal/domain"

// ── Record ─────────────────────────────────────────────────
// Every source emits flat records; the transform chain and data views
// consume them unchanged.

// Record is one row flowing from a source to a data view.
type Record = domain.Record

// Field describes a single column of a feed.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean"
}

// Schema describes the shape of records coming from a source.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns the field names in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
