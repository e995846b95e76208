package domain

import "time"

// SourceDriver is the engine behind a data connection.
type SourceDriver string

const (
	DriverMySQL    SourceDriver = "mysql"
	DriverPostgres SourceDriver = "postgres"
	DriverMongoDB  SourceDriver = "mongodb"
	DriverSQLite   SourceDriver = "sqlite"

	// File and API feeds, served by the etl sources
	DriverCSV  SourceDriver = "csv"
	DriverJSON SourceDriver = "json"
	DriverHTTP SourceDriver = "http"
)

// DataConnection describes an external database that data views can query.
// The password lives in the SecretStore under the connection ID.
type DataConnection struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Driver    SourceDriver `json:"driver"`
	Host      string       `json:"host"`     // hostname, URI (mongodb, http) or file path (sqlite, csv, json)
	Port      int          `json:"port"`     // 0 selects the driver default
	Database  string       `json:"database"` // empty for sqlite
	Username  string       `json:"username"`
	SSLMode   string       `json:"sslMode"`
	ExtraJSON string       `json:"extraJson"` // driver-specific options
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// DataConnectionStore manages saved data connections.
type DataConnectionStore interface {
	CreateConnection(c *DataConnection) error
	GetConnection(id string) (*DataConnection, error)
	ListConnections() ([]DataConnection, error)
	UpdateConnection(c *DataConnection) error
	DeleteConnection(id string) error
}

// Revision is one saved snapshot of a report. Revisions of a path form a
// chain through ParentID; the newest is the head.
type Revision struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	ParentID  *string   `json:"parentId"`
	Label     string    `json:"label"`
	Snapshot  string    `json:"snapshot"`
	CreatedAt time.Time `json:"createdAt"`
}
