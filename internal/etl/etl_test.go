package etl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reports/internal/domain"
	"reports/internal/etl"
	_ "reports/internal/etl/sources"
)

func writeFeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ─────────────────────────────────────────────────────────────
// Transforms
// ─────────────────────────────────────────────────────────────

func TestParseQuery(t *testing.T) {
	for _, in := range []string{"", " * "} {
		q, err := etl.ParseQuery(in)
		if err != nil || q.Path != "" || len(q.Transforms) != 0 {
			t.Errorf("ParseQuery(%q) = %+v, %v", in, q, err)
		}
	}
	q, err := etl.ParseQuery(`{"path":"data.items","dedupeKey":"id"}`)
	if err != nil || q.Path != "data.items" || q.DedupeKey != "id" {
		t.Errorf("unexpected query %+v %v", q, err)
	}
	if _, err := etl.ParseQuery("SELECT 1"); err == nil {
		t.Error("expected error for non-JSON query")
	}
}

func TestBuildTransformers(t *testing.T) {
	ts := etl.BuildTransformers([]etl.TransformConfig{
		{Type: "filter", Config: map[string]any{"field": "total", "op": "gt", "value": 50.0}},
		{Type: "rename", Config: map[string]any{"mapping": map[string]any{"total": "amount"}}},
		{Type: "compute", Config: map[string]any{"columns": []any{map[string]any{"name": "label", "expression": "{month}: {amount}"}}}},
		{Type: "select", Config: map[string]any{"fields": []any{"month", "amount", "label"}}},
		{Type: "unknown"},
	}, "month")

	tests := []struct {
		in   etl.Record
		keep bool
		want etl.Record
	}{
		{etl.Record{"month": "jan", "total": 100.0, "x": 1.0}, true, etl.Record{"month": "jan", "amount": 100.0, "label": "jan: 100"}},
		{etl.Record{"month": "feb", "total": 10.0}, false, nil},
		{etl.Record{"month": "jan", "total": 70.0}, false, nil}, // duplicate month
		{etl.Record{"month": "mar"}, false, nil},                // filter field missing
	}
	for i, tt := range tests {
		got, keep := etl.ApplyTransformers(tt.in, ts)
		if keep != tt.keep {
			t.Errorf("#%d keep = %v, want %v", i, keep, tt.keep)
			continue
		}
		if !keep {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("#%d got %v, want %v", i, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("#%d %s = %v, want %v", i, k, got[k], v)
			}
		}
	}
}

func TestLimitCastAndSort(t *testing.T) {
	ts := etl.BuildTransformers([]etl.TransformConfig{
		{Type: "type_cast", Config: map[string]any{"field": "n", "castType": "number"}},
		{Type: "sort", Config: map[string]any{"field": "n", "direction": "desc"}},
		{Type: "limit", Config: map[string]any{"count": 2.0}},
	}, "")

	var kept []etl.Record
	for _, s := range []string{"3", "10", "7"} {
		if r, keep := etl.ApplyTransformers(etl.Record{"n": s}, ts); keep {
			kept = append(kept, r)
		}
	}
	if len(kept) != 2 {
		t.Fatalf("limit kept %d records", len(kept))
	}
	sorted := etl.ApplyBatchSort(kept, ts)
	if sorted[0]["n"] != 10.0 || sorted[1]["n"] != 3.0 {
		t.Errorf("unexpected order %v", sorted)
	}
}

func TestFilterOps(t *testing.T) {
	r := etl.Record{"n": "12", "s": "", "name": "north"}
	tests := []struct {
		field string
		op    etl.FilterOp
		value any
		keep  bool
	}{
		{"n", etl.OpGte, 12.0, true},
		{"n", etl.OpLte, 11.0, false},
		{"n", etl.OpGt, "9", true}, // numeric, not lexical
		{"name", etl.OpLt, "south", true},
		{"s", etl.OpEmpty, nil, true},
		{"missing", etl.OpEmpty, nil, true},
		{"s", etl.OpNotEmpty, nil, false},
		{"name", etl.OpContains, "ort", true},
		{"name", "bogus", nil, true},
	}
	for _, tt := range tests {
		f := &etl.FilterTransform{Field: tt.field, Op: tt.op, Value: tt.value}
		if _, keep := f.Transform(r); keep != tt.keep {
			t.Errorf("%s %s %v: keep = %v, want %v", tt.field, tt.op, tt.value, keep, tt.keep)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Connector
// ─────────────────────────────────────────────────────────────

func TestHandles(t *testing.T) {
	for _, d := range []domain.SourceDriver{domain.DriverCSV, domain.DriverJSON, domain.DriverHTTP} {
		if !etl.Handles(d) {
			t.Errorf("expected a feed for %s", d)
		}
	}
	if etl.Handles(domain.DriverPostgres) {
		t.Error("databases are not feeds")
	}
	if len(etl.ListSources()) < 3 {
		t.Error("expected the three feed sources")
	}
}

func TestConfigFor(t *testing.T) {
	cfg, err := etl.ConfigFor(&domain.DataConnection{Driver: domain.DriverHTTP, Host: "http://x", ExtraJSON: `{"dataPath":"items"}`}, "tok")
	if err != nil || cfg["url"] != "http://x" || cfg["dataPath"] != "items" || cfg["token"] != "tok" {
		t.Fatalf("unexpected config %v %v", cfg, err)
	}
	if _, err := etl.ConfigFor(&domain.DataConnection{Driver: domain.DriverCSV, ExtraJSON: "{"}, ""); err == nil {
		t.Error("expected error for malformed extra options")
	}
}

func TestConnector_JSONFile(t *testing.T) {
	path := writeFeed(t, "sales.json", `{"data":{"items":[
		{"region":"north","total":10,"tags":["a"]},
		{"region":"south","total":30},
		{"region":"east","total":20}
	]}}`)
	c, err := etl.NewConnector(&domain.DataConnection{Name: "sales", Driver: domain.DriverJSON, Host: path}, "")
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	ctx := context.Background()

	rs, err := c.Fetch(ctx, `{"path":"data.items","transforms":[{"type":"sort","config":{"field":"total"}}]}`, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rs.Records) != 2 || !rs.Truncated || rs.Records[0]["region"] != "north" {
		t.Fatalf("unexpected result %+v", rs)
	}
	if rs.Records[0]["tags"] != `["a"]` {
		t.Errorf("nested values should be serialized, got %v", rs.Records[0]["tags"])
	}

	if err := c.TestConnection(ctx); err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if _, err := c.Fetch(ctx, `{"path":"data.missing.deeper"}`, 0); err == nil {
		t.Error("expected error for a bad data path")
	}
}

func TestConnector_CSVNoHeader(t *testing.T) {
	path := writeFeed(t, "plain.csv", "a;1\nb;2\n")
	c, err := etl.NewConnector(&domain.DataConnection{Name: "plain", Driver: domain.DriverCSV, Host: path, ExtraJSON: `{"delimiter":";","hasHeader":"false"}`}, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	info, err := c.Introspect(ctx)
	if err != nil || len(info.Tables) != 1 || info.Tables[0].Name != "plain" {
		t.Fatalf("unexpected schema %+v %v", info, err)
	}
	cols := info.Tables[0].Columns
	if len(cols) != 2 || cols[0].Name != "col_1" || cols[0].Type != "text" || cols[1].Type != "number" {
		t.Errorf("unexpected columns %+v", cols)
	}

	rs, err := c.Fetch(ctx, "*", 0)
	if err != nil || len(rs.Records) != 2 || rs.Records[1]["col_2"] != 2.0 || rs.Truncated {
		t.Fatalf("unexpected result %+v %v", rs, err)
	}
}

func TestConnector_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"ok":true},{"id":2,"ok":false}]`))
	}))
	defer srv.Close()

	ctx := context.Background()
	conn := &domain.DataConnection{Name: "api", Driver: domain.DriverHTTP, Host: srv.URL}

	good, _ := etl.NewConnector(conn, "secret")
	rs, err := good.Fetch(ctx, `{"transforms":[{"type":"filter","config":{"field":"ok","op":"eq","value":true}}]}`, 0)
	if err != nil || len(rs.Records) != 1 || rs.Records[0]["id"] != 1.0 {
		t.Fatalf("unexpected result %+v %v", rs, err)
	}
	if len(rs.Columns) != 2 || rs.Columns[0] != "id" || rs.Columns[1] != "ok" {
		t.Errorf("unexpected columns %v", rs.Columns)
	}

	bad, _ := etl.NewConnector(conn, "")
	if err := bad.TestConnection(ctx); err == nil {
		t.Error("expected error without a token")
	}
}
