package etl

import (
	"context"
	"fmt"

	"reports/internal/dbclient"
	"reports/internal/domain"
)

// Connector serves a feed connection to data views through the same
// interface as the database connectors.
type Connector struct {
	name   string
	source Source
	cfg    SourceConfig
}

var _ dbclient.Connector = (*Connector)(nil)

// NewConnector opens the feed behind conn. Nothing is read until Fetch.
func NewConnector(conn *domain.DataConnection, password string) (*Connector, error) {
	src, err := GetSource(string(conn.Driver))
	if err != nil {
		return nil, err
	}
	cfg, err := ConfigFor(conn, password)
	if err != nil {
		return nil, err
	}
	return &Connector{name: conn.Name, source: src, cfg: cfg}, nil
}

// TestConnection reads the feed once.
func (c *Connector) TestConnection(ctx context.Context) error {
	_, err := c.source.Discover(ctx, c.cfg)
	return err
}

// Fetch runs query (see ParseQuery) and returns at most limit records.
func (c *Connector) Fetch(ctx context.Context, query string, limit int) (*dbclient.ResultSet, error) {
	q, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = dbclient.DefaultLimit
	}

	records, schema, err := Run(ctx, c.source, c.cfg, q)
	if err != nil {
		return nil, err
	}
	rs := &dbclient.ResultSet{Records: []domain.Record{}}
	if len(records) > limit {
		records = records[:limit]
		rs.Truncated = true
	}
	rs.Records = append(rs.Records, records...)
	rs.Columns = columnsOf(records, schema)
	return rs, nil
}

// Introspect reports the feed as a single table named after the connection.
func (c *Connector) Introspect(ctx context.Context) (*dbclient.SchemaInfo, error) {
	schema, err := c.source.Discover(ctx, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", c.name, err)
	}
	table := dbclient.TableInfo{Name: c.name}
	for _, f := range schema.Fields {
		table.Columns = append(table.Columns, dbclient.ColumnInfo{Name: f.Name, Type: f.Type})
	}
	return &dbclient.SchemaInfo{Tables: []dbclient.TableInfo{table}}, nil
}

func (c *Connector) Close() error { return nil }
