package storage

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"reports/internal/config"
	"reports/internal/domain"
)

// OpenReportStore returns the report store selected by cfg.Store.Backend.
// The SQLite backend reuses db; the close func releases whatever the
// backend opened on its own and is never nil.
func OpenReportStore(ctx context.Context, cfg config.Config, db *DB, logger *log.Logger) (domain.ReportStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.BackendSQLite, "":
		return NewSQLiteReportStore(db), noop, nil
	case config.BackendRedis:
		s := NewRedisReportStore(RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		}, logger)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", cfg.Store.RedisAddr, err)
		}
		return s, s.Close, nil
	case config.BackendMongo:
		s, err := NewMongoReportStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
