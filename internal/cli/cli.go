// Package cli implements reportctl, the command-line companion of the
// report builder. It migrates and inspects layout files, publishes them
// to the configured store, and runs the headless servers (HTML viewer,
// MCP over stdio, layout file watcher).
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"reports/internal/config"
	"reports/internal/domain"
	"reports/internal/schema"
	"reports/internal/service"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out        io.Writer
	configPath string
}

// New creates a CLI that logs to w and prints results to out.
func New(w, out io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		out: out,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "reportctl",
		Short:        "reportctl manages report layouts",
		Long:         `reportctl migrates, validates and publishes report layouts, and runs the viewer and MCP servers without the desktop app.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath(), "path to reports.toml")

	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.outlineCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.deleteCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.watchCommand())

	return root
}

// ── Helpers ────────────────────────────────────────────────

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// openStack loads the config and opens storage. Callers must Close it.
func (c *CLI) openStack(ctx context.Context, emitter service.EventEmitter) (*service.Stack, config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	st, err := service.OpenStack(ctx, cfg, emitter, c.Logger)
	if err != nil {
		return nil, cfg, err
	}
	return st, cfg, nil
}

// readLayout decodes a layout file in any supported shape: envelope,
// current or legacy.
func readLayout(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read layout: %w", err)
	}
	doc, err := schema.DecodeEnvelope(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
