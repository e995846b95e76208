package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reports/internal/schema"
)

// publishCommand stores a layout file under a report path.
func (c *CLI) publishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <file> <path>",
		Short: "Publish a layout file to the report store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readLayout(args[0])
			if err != nil {
				return err
			}
			st, _, err := c.openStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Editor.Replace(cmd.Context(), doc); err != nil {
				return err
			}
			if err := st.Reports.Publish(cmd.Context(), args[1]); err != nil {
				return err
			}
			c.Logger.Info("published", "path", st.Reports.CurrentPath(), "title", doc.Title)
			return nil
		},
	}
}

// getCommand prints a stored report's layout.
func (c *CLI) getCommand() *cobra.Command {
	var envelope bool
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print a published report as layout JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := c.openStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			rep, err := st.Reports.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var data []byte
			if envelope {
				data, err = schema.EncodeEnvelope(rep.Layout)
			} else {
				data, err = schema.EncodeIndent(rep.Layout)
			}
			if err != nil {
				return err
			}
			c.printf("%s\n", data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&envelope, "envelope", false, "wrap the layout in a versioned envelope")
	return cmd
}

// listCommand prints every published report.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := c.openStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.Reports.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tTITLE\tUPDATED")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Title, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a published report and its revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := c.openStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Reports.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.Logger.Info("deleted", "path", args[0])
			return nil
		},
	}
}
