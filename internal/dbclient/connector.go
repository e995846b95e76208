package dbclient

import (
	"context"
	"errors"
	"fmt"

	"reports/internal/domain"
)

// DefaultLimit caps the rows pulled into a data view when the source does
// not set one.
const DefaultLimit = 500

// ErrWriteQuery is returned when a data view source is not a read query.
var ErrWriteQuery = errors.New("data view sources must be read-only queries")

// ResultSet is the rows returned for a data view source.
type ResultSet struct {
	Columns   []string        `json:"columns"`
	Records   []domain.Record `json:"records"`
	Truncated bool            `json:"truncated"` // more rows than the limit were available
}

// SchemaInfo lists the tables/collections a source exposes.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes a table/collection.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Connector abstracts reading from an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Fetch runs a read query and returns at most limit records.
	Fetch(ctx context.Context, query string, limit int) (*ResultSet, error)

	// Introspect returns the tables and columns of the source.
	Introspect(ctx context.Context) (*SchemaInfo, error)

	// Close closes the connection.
	Close() error
}

// NewConnector creates a Connector for the given data connection.
// The password must be provided separately (from SecretStore).
func NewConnector(conn *domain.DataConnection, password string) (Connector, error) {
	switch conn.Driver {
	case domain.DriverSQLite:
		return newSQLiteConnector(conn)
	case domain.DriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn, password))
	case domain.DriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn, password))
	case domain.DriverMongoDB:
		return newMongoConnector(conn, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
