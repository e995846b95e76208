package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reports/internal/domain"
	"reports/internal/schema"
)

// SQLiteReportStore keeps published reports in the reports table. Layouts
// are stored as versioned envelopes.
type SQLiteReportStore struct {
	db *DB
}

func NewSQLiteReportStore(db *DB) *SQLiteReportStore {
	return &SQLiteReportStore{db: db}
}

func (s *SQLiteReportStore) SaveReport(ctx context.Context, path string, doc domain.Document) error {
	data, err := schema.EncodeEnvelope(doc)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", path, err)
	}
	now := time.Now()
	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO reports (path, title, layout_json, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			layout_json = excluded.layout_json,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		path, doc.Title, string(data), schema.CurrentVersion, now, now,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteReportStore) LoadReport(ctx context.Context, path string) (*domain.Report, error) {
	var (
		layout    string
		updatedAt time.Time
	)
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT layout_json, updated_at FROM reports WHERE path = ?`, path,
	).Scan(&layout, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrReportNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", path, err)
	}

	doc, err := schema.DecodeEnvelope([]byte(layout))
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &domain.Report{Path: path, Title: doc.Title, Layout: doc, UpdatedAt: updatedAt}, nil
}

func (s *SQLiteReportStore) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT path, title, updated_at FROM reports ORDER BY path`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportSummary
	for rows.Next() {
		var r domain.ReportSummary
		if err := rows.Scan(&r.Path, &r.Title, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteReportStore) DeleteReport(ctx context.Context, path string) error {
	if _, err := s.db.Conn().ExecContext(ctx, `DELETE FROM reports WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete report %s: %w", path, err)
	}
	return nil
}
