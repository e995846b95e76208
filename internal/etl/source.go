package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"reports/internal/domain"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts records from a file or an API.
// Implementations live in etl/sources/, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration input for a source.
// The frontend renders the connection form from it.
type ConfigField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // "string" | "select" | "textarea" | "password" | "file"
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
	Help     string   `json:"help,omitempty"`
}

// SourceSpec describes a source type. Type doubles as the
// domain.SourceDriver of connections served by the source.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Source is the interface every feed must implement.
type Source interface {
	Spec() SourceSpec

	// Discover introspects the source and returns the expected schema.
	Discover(ctx context.Context, cfg SourceConfig) (*Schema, error)

	// Read streams records into a channel that is closed when all records
	// have been read or ctx is cancelled. Errors are sent on the error
	// channel (buffered size 1).
	Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Registration happens in init() of each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source under its type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// Handles reports whether a feed source serves driver.
func Handles(driver domain.SourceDriver) bool {
	_, err := GetSource(string(driver))
	return err == nil
}

// ConfigFor builds the source config of a saved connection. ExtraJSON
// supplies the source-specific keys; Host is the file path or URL and the
// stored secret becomes the bearer token.
func ConfigFor(conn *domain.DataConnection, password string) (SourceConfig, error) {
	cfg := SourceConfig{}
	if conn.ExtraJSON != "" {
		if err := json.Unmarshal([]byte(conn.ExtraJSON), &cfg); err != nil {
			return nil, fmt.Errorf("parse extra options: %w", err)
		}
	}
	switch conn.Driver {
	case domain.DriverHTTP:
		cfg["url"] = conn.Host
	default:
		cfg["filePath"] = conn.Host
	}
	if password != "" {
		cfg["token"] = password
	}
	return cfg, nil
}
