package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/source"
	"github.com/leapstack-labs/leapsite/pkg/core"
	"github.com/spf13/cobra"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Builds int
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List source documents or recent builds",
		Long: `List the source documents in the content directory in listing order,
newest first. With --builds, list the most recent builds instead.`,
		Example: `  # List posts
  leapsite list

  # Show the last 5 builds
  leapsite list --builds 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Builds > 0 {
				return runListBuilds(cmd, opts.Builds)
			}
			return runListDocuments(cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Builds, "builds", 0, "List the N most recent builds")
	return cmd
}

func runListDocuments(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)

	gen, cleanup, err := newGenerator(cfg, config.GetLogger(ctx), false, true)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := gen.LoadDocuments(ctx)
	if err != nil {
		return err
	}
	renderDocuments(cmd.OutOrStdout(), cfg.ContentDir, docs)
	return nil
}

func renderDocuments(w io.Writer, contentDir string, docs []*source.Document) {
	if len(docs) == 0 {
		_, _ = fmt.Fprintln(w, "(no documents)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Slug", "Title", "Date", "Source"})
	for i, doc := range docs {
		title, _ := doc.Record.Get("TITLE")
		path := doc.Path
		if rel, err := filepath.Rel(contentDir, doc.Path); err == nil {
			path = rel
		}
		t.AppendRow(table.Row{i + 1, doc.Slug(), title, doc.Date(), path})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(docs)})
	t.Render()
}

func runListBuilds(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)

	store, err := openStore(cfg.StatePath, config.GetLogger(ctx))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := store.ListBuilds(limit)
	if err != nil {
		return err
	}
	renderBuilds(cmd.OutOrStdout(), builds)
	return nil
}

func renderBuilds(w io.Writer, builds []*core.Build) {
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(w, "(no builds)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Status", "Started", "Duration", "Written", "Unchanged", "Error"})
	for _, b := range builds {
		duration := "-"
		if b.CompletedAt != nil {
			duration = b.CompletedAt.Sub(b.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			b.ID[:min(8, len(b.ID))],
			string(b.Status),
			b.StartedAt.Local().Format(time.DateTime),
			duration,
			b.Stats.Written,
			b.Stats.Skipped,
			b.Error,
		})
	}
	t.Render()
}
