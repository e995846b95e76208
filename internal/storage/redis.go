package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	lowimpl "github.com/redis/go-redis/v9"

	"reports/internal/domain"
	"reports/internal/schema"
)

const scanBatchSize = 100

// RedisOptions configures a RedisReportStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // prepended to every report path
}

// RedisReportStore keeps each report in a hash at Prefix+path with the
// fields title, layout and updated_at.
type RedisReportStore struct {
	prefix string
	logger *log.Logger

	internal *lowimpl.Client
}

var _ domain.ReportStore = (*RedisReportStore)(nil)

func NewRedisReportStore(opts RedisOptions, logger *log.Logger) *RedisReportStore {
	if logger == nil {
		logger = log.Default()
	}
	s := &RedisReportStore{
		prefix: opts.Prefix,
		logger: logger.WithPrefix("redis"),
		internal: lowimpl.NewClient(&lowimpl.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
	s.logger.Info("report store initialized", "addr", opts.Addr, "prefix", opts.Prefix)
	return s
}

// Ping checks that the server is reachable.
func (s *RedisReportStore) Ping(ctx context.Context) error {
	return s.internal.Ping(ctx).Err()
}

func (s *RedisReportStore) Close() error {
	if s.internal == nil {
		return nil
	}
	return s.internal.Close()
}

func (s *RedisReportStore) key(path string) string {
	return s.prefix + path
}

func (s *RedisReportStore) SaveReport(ctx context.Context, path string, doc domain.Document) error {
	data, err := schema.EncodeEnvelope(doc)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", path, err)
	}
	err = s.internal.HSet(ctx, s.key(path), map[string]any{
		"title":      doc.Title,
		"layout":     string(data),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func (s *RedisReportStore) LoadReport(ctx context.Context, path string) (*domain.Report, error) {
	layout, err := s.internal.HGet(ctx, s.key(path), "layout").Result()
	if errors.Is(err, lowimpl.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrReportNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", path, err)
	}

	doc, err := schema.DecodeEnvelope([]byte(layout))
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}

	rep := &domain.Report{Path: path, Title: doc.Title, Layout: doc}
	if ts, err := s.internal.HGet(ctx, s.key(path), "updated_at").Result(); err == nil {
		rep.UpdatedAt = parseTime(ts)
	}
	return rep, nil
}

func (s *RedisReportStore) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	var (
		out []domain.ReportSummary
		cur uint64
	)
	for {
		keys, next, err := s.internal.Scan(ctx, cur, s.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
		for _, key := range keys {
			vals, err := s.internal.HMGet(ctx, key, "title", "updated_at").Result()
			if err != nil {
				return nil, fmt.Errorf("list reports: %s: %w", key, err)
			}
			r := domain.ReportSummary{Path: strings.TrimPrefix(key, s.prefix)}
			if v, ok := vals[0].(string); ok {
				r.Title = v
			}
			if v, ok := vals[1].(string); ok {
				r.UpdatedAt = parseTime(v)
			}
			out = append(out, r)
		}
		// Redis returns cursor 0 when the scan is complete
		if next == 0 {
			break
		}
		cur = next
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *RedisReportStore) DeleteReport(ctx context.Context, path string) error {
	if err := s.internal.Del(ctx, s.key(path)).Err(); err != nil {
		return fmt.Errorf("delete report %s: %w", path, err)
	}
	return nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
