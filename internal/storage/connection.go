package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reports/internal/domain"
)

// ErrConnectionNotFound is returned by GetConnection for an unknown id.
var ErrConnectionNotFound = errors.New("data connection not found")

const connectionColumns = `id, name, driver, host, port, database_name, username, ssl_mode, extra_json, created_at, updated_at`

// DataConnectionStore manages data source records in SQLite.
type DataConnectionStore struct {
	db *DB
}

func NewDataConnectionStore(db *DB) *DataConnectionStore {
	return &DataConnectionStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(row scanner, c *domain.DataConnection) error {
	return row.Scan(&c.ID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.ExtraJSON, &c.CreatedAt, &c.UpdatedAt)
}

func (s *DataConnectionStore) CreateConnection(c *domain.DataConnection) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ExtraJSON == "" {
		c.ExtraJSON = "{}"
	}

	_, err := s.db.Conn().Exec(
		`INSERT INTO data_connections (`+connectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.ExtraJSON, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create data connection: %w", err)
	}
	return nil
}

func (s *DataConnectionStore) GetConnection(id string) (*domain.DataConnection, error) {
	row := s.db.Conn().QueryRow(`SELECT `+connectionColumns+` FROM data_connections WHERE id = ?`, id)

	c := &domain.DataConnection{}
	err := scanConnection(row, c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return c, err
}

func (s *DataConnectionStore) ListConnections() ([]domain.DataConnection, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + connectionColumns + ` FROM data_connections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.DataConnection
	for rows.Next() {
		var c domain.DataConnection
		if err := scanConnection(rows, &c); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (s *DataConnectionStore) UpdateConnection(c *domain.DataConnection) error {
	c.UpdatedAt = time.Now()
	_, err := s.db.Conn().Exec(
		`UPDATE data_connections SET name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, extra_json=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.ExtraJSON, c.UpdatedAt, c.ID,
	)
	return err
}

func (s *DataConnectionStore) DeleteConnection(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM data_connections WHERE id = ?`, id)
	return err
}
