package site

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/source"
	"github.com/leapstack-labs/leapsite/internal/template"
	"github.com/leapstack-labs/leapsite/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Pagination variables set on listing pages.
const (
	VarCurrentPage  = "CURRENT_PAGE"
	VarPreviousPage = "PREVIOUS_PAGE"
	VarNextPage     = "NEXT_PAGE"
	VarFirstPage    = "FIRST_PAGE"
	VarLastPage     = "LAST_PAGE"
)

// output is a rendered file waiting to be written.
type output struct {
	path string
	data []byte
}

func (g *Generator) renderEntries(ctx context.Context, r *template.Renderer, tmpl *template.Template, globals *core.Record, docs []*source.Document) ([]output, error) {
	outputs := make([]output, len(docs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, doc := range docs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			path := entryPath(g.cfg.EntryOutput, doc.Slug())
			outputs[i] = output{
				path: path,
				data: []byte(r.Render(tmpl, &template.Context{
					Global:  globals,
					Records: []*core.Record{doc.Record},
				})),
			}
			g.logger.Debug("rendered entry", "source", doc.Path, "output", path)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (g *Generator) renderListings(r *template.Renderer, tmpl *template.Template, globals *core.Record, docs []*source.Document) []output {
	perPage := g.cfg.PostsPerPage
	last := (len(docs) + perPage - 1) / perPage
	if last == 0 {
		last = 1
	}

	outputs := make([]output, 0, last)
	for page := 1; page <= last; page++ {
		lo := (page - 1) * perPage
		hi := min(lo+perPage, len(docs))
		records := make([]*core.Record, 0, hi-lo)
		for _, doc := range docs[lo:hi] {
			records = append(records, doc.Record)
		}

		path := listingPath(g.cfg, page)
		outputs = append(outputs, output{
			path: path,
			data: []byte(r.Render(tmpl, &template.Context{
				Global:  globals.With(paginationVars(page, last)),
				Records: records,
				Listing: true,
			})),
		})
		g.logger.Debug("rendered listing", "page", page, "output", path)
	}
	return outputs
}

func (g *Generator) renderPages(r *template.Renderer, globals *core.Record) ([]output, error) {
	outputs := make([]output, 0, len(g.cfg.Pages))
	for _, page := range g.cfg.Pages {
		doc, err := g.parser.ParseFile(page.Source)
		if err != nil {
			return nil, err
		}
		tmpl, err := g.loadTemplate(page.Template)
		if err != nil {
			return nil, err
		}
		if tmpl == nil {
			return nil, fmt.Errorf("template %s for page %s not found", page.Template, page.Source)
		}
		outputs = append(outputs, output{
			path: page.Output,
			data: []byte(r.Render(tmpl, &template.Context{
				Global:  globals,
				Records: []*core.Record{doc.Record},
			})),
		})
	}
	return outputs, nil
}

// paginationVars returns the page navigation variables for page out of last.
func paginationVars(page, last int) *core.Record {
	rec := core.NewRecord()
	rec.Set(VarCurrentPage, strconv.Itoa(page))
	if page > 1 {
		rec.Set(VarPreviousPage, strconv.Itoa(page-1))
	}
	if page < last {
		rec.Set(VarNextPage, strconv.Itoa(page+1))
	}
	rec.Set(VarFirstPage, "1")
	rec.Set(VarLastPage, strconv.Itoa(last))
	return rec
}

func entryPath(pattern, slug string) string {
	return strings.ReplaceAll(pattern, config.SlugPlaceholder, slug)
}

// listingPath returns the output path of a listing page. The first page goes
// to index_output when one is configured.
func listingPath(cfg *config.Config, page int) string {
	if page == 1 && cfg.IndexOutput != "" {
		return cfg.IndexOutput
	}
	return strings.ReplaceAll(cfg.ListingOutput, config.PagePlaceholder, strconv.Itoa(page))
}
