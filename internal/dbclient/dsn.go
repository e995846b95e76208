package dbclient

import (
	"fmt"
	"net/url"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"reports/internal/domain"
)

// buildMySQLDSN builds user:password@tcp(host:port)/db for a DataConnection.
func buildMySQLDSN(conn *domain.DataConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&readTimeout=30s",
		conn.Username, password, conn.Host, port, conn.Database,
	)
	if conn.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// buildPostgresDSN builds a key=value connection string. Sessions are
// opened read-only since data views never write.
func buildPostgresDSN(conn *domain.DataConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=reports default_transaction_read_only=on",
		conn.Host, port, conn.Username, password, conn.Database, sslMode,
	)
}

// buildSQLiteDSN opens the file at conn.Host with query_only set.
func buildSQLiteDSN(conn *domain.DataConnection) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "query_only(1)")
	return conn.Host + "?" + q.Encode()
}

func newSQLiteConnector(conn *domain.DataConnection) (*sqlConnector, error) {
	return newSQLConnector("sqlite", buildSQLiteDSN(conn))
}
