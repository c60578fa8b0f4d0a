package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/source"
	"github.com/leapstack-labs/leapsite/internal/template"
	"github.com/spf13/cobra"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Template string
	Listing  bool
	Entries  []string
	Defines  []string
	Output   string
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}
	cmd := &cobra.Command{
		Use:   "render [flags] [SOURCE...]",
		Short: "Render a template against source documents",
		Long: `Render a single template against zero or more source documents.

Without --listing the template runs in entry mode and at most one source is
accepted; its variables are visible inside "entry" blocks. With --listing
every source becomes one iteration of the "listing" blocks.

Listing entries (--entry) feed "listing_entry" blocks, one per block
occurrence. Pass "-" to leave a hole that skips the block.`,
		Example: `  # Render one post
  leapsite render -t templates/entry.html content/hello.md

  # Render a listing page with a site title
  leapsite render -l -t templates/listing.html -D SITE_TITLE="My blog" content/*.md

  # Write to a file instead of stdout
  leapsite render -t templates/entry.html -o public/hello.html content/hello.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "Template file (required)")
	cmd.Flags().BoolVarP(&opts.Listing, "listing", "l", false, "Render in listing mode")
	cmd.Flags().StringArrayVarP(&opts.Entries, "entry", "e", nil, "Listing entry source, or - for none (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Defines, "define", "D", nil, "Global variable KEY=VALUE (repeatable)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func runRender(cmd *cobra.Command, args []string, opts *RenderOptions) error {
	logger := config.GetLogger(cmd.Context())

	if !opts.Listing && len(args) > 1 {
		return errors.New("only one source file may be given without --listing")
	}
	if !opts.Listing && len(opts.Entries) > 0 {
		return errors.New("--entry requires --listing")
	}

	globals, err := parseDefines(opts.Defines)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.Template) //nolint:gosec // path is a CLI argument
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	tmpl, err := template.Parse(string(data), opts.Template)
	if err != nil {
		return err
	}

	parser := source.NewParser()
	records, err := loadRecords(parser, args)
	if err != nil {
		return err
	}
	entries, err := loadEntries(parser, opts.Entries)
	if err != nil {
		return err
	}

	if tmpl.Empty() {
		logger.Debug("nothing to render", "template", opts.Template)
	}
	out := template.NewRenderer(logger).Render(tmpl, &template.Context{
		Global:         globals,
		Records:        records,
		ListingEntries: entries,
		Listing:        opts.Listing,
	})

	if opts.Output == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(opts.Output, []byte(out), 0o644); err != nil { //nolint:gosec // rendered output is world readable
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
