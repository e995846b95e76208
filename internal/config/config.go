package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the contents of reports.toml. Every field has a default, so a
// missing file is not an error.
type Config struct {
	DataDir  string         `toml:"data_dir"`
	Store    StoreConfig    `toml:"store"`
	Editor   EditorConfig   `toml:"editor"`
	Schedule ScheduleConfig `toml:"schedule"`
	Viewer   ViewerConfig   `toml:"viewer"`
	MCP      MCPConfig      `toml:"mcp"`
}

type StoreConfig struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

type EditorConfig struct {
	// Capacity overrides the printable page height in pixels; 0 derives it
	// from the document's page settings.
	Capacity     float64 `toml:"capacity"`
	HistoryLimit int     `toml:"history_limit"`
	AutosavePath string  `toml:"autosave_path"`
}

// ScheduleConfig holds cron expressions; an empty one disables the job.
type ScheduleConfig struct {
	Autosave    string `toml:"autosave"`
	RefreshData string `toml:"refresh_data"`
}

type ViewerConfig struct {
	Addr string `toml:"addr"`
}

// MCPConfig controls the agent endpoint of the desktop app. An empty Addr
// disables it; the CLI always serves MCP over stdio.
type MCPConfig struct {
	Addr            string `toml:"addr"`
	RequireApproval bool   `toml:"require_approval"`
}

// DefaultDataDir is ~/.local/share/reports.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "reports")
}

// DefaultPath is the config file inside the default data dir.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "reports.toml")
}

func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Store: StoreConfig{
			Backend:       BackendSQLite,
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "report:",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "reports",
		},
		Editor: EditorConfig{
			HistoryLimit: 40,
			AutosavePath: "drafts/current",
		},
		Schedule: ScheduleConfig{
			Autosave: "@every 1m",
		},
		Viewer: ViewerConfig{Addr: ":8080"},
		MCP:    MCPConfig{Addr: "127.0.0.1:7421", RequireApproval: true},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Editor.Capacity < 0 {
		return fmt.Errorf("editor.capacity must not be negative")
	}
	if c.Editor.HistoryLimit < 0 {
		return fmt.Errorf("editor.history_limit must not be negative")
	}
	return nil
}

// DBPath is the SQLite file holding reports, revisions and connections.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "reports.db")
}
