package cli

import (
	"github.com/spf13/cobra"

	mcpserver "reports/internal/mcp"
	"reports/internal/service"
	"reports/internal/viewer"
)

// serveCommand runs the read-only HTML/JSON viewer.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve published reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := c.openStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			if addr == "" {
				addr = cfg.Viewer.Addr
			}
			return viewer.New(st.Store, c.Logger).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// mcpCommand serves the MCP tools over stdio against a fresh editor. With
// --open the editor starts from a published report.
func (c *CLI) mcpCommand() *cobra.Command {
	var open string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := c.openStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			if open != "" {
				if _, err := st.Reports.Open(cmd.Context(), open); err != nil {
					return err
				}
			}
			srv := mcpserver.New(cmd.Context(), mcpserver.Deps{
				Editor:  st.Editor,
				Reports: st.Reports,
				Logger:  c.Logger,
			})
			return srv.ServeStdio()
		},
	}
	cmd.Flags().StringVar(&open, "open", "", "report path to load before serving")
	return cmd
}

// watchCommand re-imports a layout file on every change and runs the
// configured schedule (autosave, data refresh) until interrupted.
func (c *CLI) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Import a layout file on every change and autosave it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, _, err := c.openStack(ctx, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			w := service.NewImportWatcher(st.Editor, nil, c.Logger)
			if err := w.ImportFile(ctx, args[0]); err != nil {
				return err
			}
			if err := w.Watch(ctx, args[0]); err != nil {
				return err
			}
			defer w.Stop()

			if err := st.Scheduler.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
}
