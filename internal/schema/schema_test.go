package schema_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/schema"
)

const legacy = `{
	"title": "T",
	"pageSettings": {"size": "Letter", "orientation": "landscape", "margins": {"top": 10, "right": 10, "bottom": 10, "left": 10}},
	"components": [{"id": "a", "type": "text", "order": 0, "content": "hello"}]
}`

func TestDecode_MigratesLegacy(t *testing.T) {
	doc, err := schema.Decode([]byte(legacy))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	p := doc.Pages[0]
	if p.ID != domain.DefaultPageID || p.Name != "Page 1" {
		t.Errorf("unexpected synthetic page %q/%q", p.ID, p.Name)
	}
	if len(p.Components) != 1 || p.Components[0].ID != "a" {
		t.Fatalf("unexpected components %+v", p.Components)
	}
	if doc.Title != "T" || doc.PageSettings.Size != domain.PageLetter {
		t.Errorf("document settings lost: %+v", doc)
	}
	if !schema.IsLegacy([]byte(legacy)) {
		t.Error("IsLegacy should detect the flat shape")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	once, changed, err := schema.Migrate([]byte(legacy))
	if err != nil || !changed {
		t.Fatalf("first migration: changed=%v err=%v", changed, err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(once, &top); err != nil {
		t.Fatalf("decode migrated: %v", err)
	}
	if _, ok := top["components"]; ok {
		t.Fatalf("legacy key kept: %s", once)
	}
	twice, changed, err := schema.Migrate(once)
	if err != nil {
		t.Fatalf("second migration: %v", err)
	}
	if changed || !bytes.Equal(once, twice) {
		t.Error("migrating a paged layout must be a no-op")
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `{"title":`, schema.ErrMalformed},
		{"not an object", `[1,2]`, schema.ErrMalformed},
		{"null", `null`, schema.ErrMalformed},
		{"no arrays", `{"title":"x"}`, schema.ErrMalformed},
		{"pages not array", `{"pages":{"id":"p"}}`, schema.ErrMalformed},
		{"components not array", `{"components":"nope"}`, schema.ErrMalformed},
		{"pages null", `{"pages":null}`, schema.ErrMalformed},
		{"no pages", `{"pages":[]}`, schema.ErrCorrupt},
		{"duplicate ids", `{"pages":[{"id":"p","name":"P","components":[
			{"id":"a","type":"text","content":""},
			{"id":"r","type":"row","children":[{"id":"a","type":"text","content":""}]}]}]}`, schema.ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Decode([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecode_NormalizesOrder(t *testing.T) {
	in := `{"title":"x","pages":[{"id":"p","name":"P","components":[
		{"id":"a","type":"text","order":5,"content":""},
		{"id":"b","type":"column","order":5,"children":[{"id":"c","type":"text","order":9,"content":""}]}]}]}`

	doc, err := schema.Decode([]byte(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	comps := doc.Pages[0].Components
	if comps[0].Order != 0 || comps[1].Order != 1 || comps[1].Children()[0].Order != 0 {
		t.Errorf("orders not re-derived: %+v", comps)
	}
	if doc.PageSettings != domain.DefaultPageSettings() {
		t.Errorf("missing page settings should default, got %+v", doc.PageSettings)
	}
}

func sampleDoc(t *testing.T) domain.Document {
	t.Helper()
	w := 320.0
	doc := domain.NewDocument()
	nodes := []domain.Node{
		{ID: "h", Content: domain.Heading{Content: "Quarterly"}, Styles: domain.Style{"fontSize": 32.0, "fontWeight": "bold"}},
		{ID: "r", Content: domain.Row{Gap: 10, AlignItems: "center", Children: []domain.Node{
			{ID: "m", Content: domain.MetricCard{Label: "Revenue", Value: "1.2M", Trend: &domain.Trend{Value: "+4%", Direction: domain.TrendUp}}},
			{ID: "i", Content: domain.Image{Src: "https://example.com/x.png", Width: &w}},
		}}},
		{ID: "dv", Content: domain.DataView{
			ViewType: domain.ViewTable,
			Data:     []domain.Record{{"name": "A", "value": 1.0}},
			Config:   domain.DataViewConfig{XAxisKey: "name", Columns: []domain.ColumnDef{{Key: "name", Label: "Name"}}},
			Formulas: []domain.Formula{{Type: domain.FormulaSum, Key: "value"}},
		}},
	}
	var err error
	for _, n := range nodes {
		if doc, err = doctree.InsertAt(doc, n, domain.DefaultPageID, doctree.Append); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if doc, err = doctree.AddPage(doc, domain.Page{ID: "p2", Name: "Appendix", Components: []domain.Node{
		{ID: "al", Content: domain.Alert{Variant: domain.AlertInfo, Title: "Info", Content: "note"}},
	}}); err != nil {
		t.Fatalf("add page: %v", err)
	}
	return doc
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDoc(t)

	data, err := schema.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := schema.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(back, doc) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", back, doc)
	}

	again, err := schema.Encode(back)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("encoding not stable:\n%s\n%s", data, again)
	}
}

func TestEnvelope(t *testing.T) {
	doc := sampleDoc(t)
	data, err := schema.EncodeEnvelope(doc)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	back, err := schema.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if !reflect.DeepEqual(back, doc) {
		t.Error("envelope round trip mismatch")
	}

	old := []byte(`{"version":1,"layout":` + legacy + `}`)
	migrated, err := schema.DecodeEnvelope(old)
	if err != nil {
		t.Fatalf("v1 envelope: %v", err)
	}
	if migrated.Pages[0].Components[0].ID != "a" {
		t.Error("v1 envelope not migrated")
	}

	future := []byte(`{"version":99,"layout":{"pages":[]}}`)
	if _, err := schema.DecodeEnvelope(future); !errors.Is(err, schema.ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}

	bare, err := schema.DecodeEnvelope([]byte(legacy))
	if err != nil || len(bare.Pages) != 1 {
		t.Fatalf("bare layout should decode by shape: %v", err)
	}
}
