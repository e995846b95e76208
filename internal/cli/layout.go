package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/export"
	"reports/internal/schema"
)

// migrateCommand rewrites a layout file into the current shape.
func (c *CLI) migrateCommand() *cobra.Command {
	var (
		output   string
		envelope bool
	)
	cmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Rewrite a layout file in the current schema",
		Long: `Migrate reads a layout in the legacy single-page shape, the paged shape
or a versioned envelope, and writes it back in the current shape.
Without -o the result goes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readLayout(args[0])
			if err != nil {
				return err
			}

			var data []byte
			if envelope {
				data, err = schema.EncodeEnvelope(doc)
			} else {
				data, err = schema.EncodeIndent(doc)
			}
			if err != nil {
				return err
			}

			if output == "" {
				c.printf("%s\n", data)
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			c.Logger.Info("migrated", "from", args[0], "to", output, "pages", len(doc.Pages))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&envelope, "envelope", false, "wrap the layout in a versioned envelope")
	return cmd
}

// validateCommand checks that layout files decode.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that layout files decode",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				doc, err := readLayout(path)
				if err != nil {
					c.Logger.Error("invalid", "err", err)
					failed++
					continue
				}
				data, _ := os.ReadFile(path)
				c.printf("%s: ok (%d pages, %d components%s)\n", path, len(doc.Pages), countNodes(doc), legacyNote(data))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d layouts invalid", failed, len(args))
			}
			return nil
		},
	}
}

// outlineCommand prints the heading outline of a layout file.
func (c *CLI) outlineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the heading outline of a layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readLayout(args[0])
			if err != nil {
				return err
			}
			page := ""
			for _, e := range export.Outline(doc) {
				if e.PageID != page {
					page = e.PageID
					c.printf("%s\n", e.PageName)
				}
				c.printf("%s- %s\n", strings.Repeat("  ", e.Depth+1), e.Text)
			}
			return nil
		},
	}
}

// planCommand prints the PDF or DOCX export plan of a layout file as JSON.
func (c *CLI) planCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "plan <pdf|docx> <file>",
		Short:     "Print the export plan of a layout",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"pdf", "docx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readLayout(args[1])
			if err != nil {
				return err
			}
			var plan any
			switch args[0] {
			case "pdf":
				plan = export.PlanPDF(doc)
			case "docx":
				plan = export.PlanDOCX(doc)
			default:
				return fmt.Errorf("unknown format %q (want pdf or docx)", args[0])
			}
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			c.printf("%s\n", data)
			return nil
		},
	}
}

func countNodes(doc domain.Document) int {
	n := 0
	doctree.Walk(doc, func(domain.Node, doctree.Location) bool {
		n++
		return true
	})
	return n
}

func legacyNote(data []byte) string {
	if schema.IsLegacy(data) {
		return ", legacy shape"
	}
	return ""
}
