// Package site builds a static site from source documents and templates.
//
// A build discovers the source documents in the content directory, renders
// one entry page per document, paginated listing pages over all documents,
// the configured standalone pages, and finally copies the static directory.
// When a state store is configured, outputs whose content did not change
// since the previous build are not rewritten.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/datetime"
	"github.com/leapstack-labs/leapsite/internal/source"
	"github.com/leapstack-labs/leapsite/internal/template"
	"github.com/leapstack-labs/leapsite/pkg/core"
	"golang.org/x/sync/errgroup"
)

// sourceExtensions are the file extensions treated as source documents.
var sourceExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Options configures a Generator.
type Options struct {
	Config *config.Config
	// Store records build runs and output hashes. Optional.
	Store core.Store
	// Force rewrites every output even when its hash is unchanged.
	Force  bool
	Logger *slog.Logger
}

// Result summarizes a build.
type Result struct {
	BuildID   string
	Documents int
	Written   []string
	Skipped   []string
	Duration  time.Duration
}

// Generator builds the site described by a config.
type Generator struct {
	cfg    *config.Config
	store  core.Store
	force  bool
	logger *slog.Logger
	parser *source.Parser
}

// NewGenerator creates a generator. opts.Config is required.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Config == nil {
		return nil, errors.New("site: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		cfg:    opts.Config,
		store:  opts.Store,
		force:  opts.Force,
		logger: logger,
		parser: source.NewParser(),
	}, nil
}

// Build runs a full build. A failed build is still recorded in the store.
func (g *Generator) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	w := newWriter(g.cfg.OutputDir, g.store, g.force, g.logger)

	if g.store != nil {
		build, err := g.store.CreateBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to record build: %w", err)
		}
		w.buildID = build.ID
	}

	result, err := g.build(ctx, w)
	if g.store != nil {
		status, msg := core.BuildStatusCompleted, ""
		if err != nil {
			status, msg = core.BuildStatusFailed, err.Error()
		}
		if cerr := g.store.CompleteBuild(w.buildID, status, w.stats(), msg); cerr != nil {
			g.logger.Warn("failed to complete build record", "build_id", w.buildID, "error", cerr)
		}
	}
	if err != nil {
		return nil, err
	}

	result.BuildID = w.buildID
	result.Duration = time.Since(start)
	g.logger.Info("build complete",
		"documents", result.Documents,
		"written", len(result.Written),
		"skipped", len(result.Skipped),
		"duration", result.Duration)
	return result, nil
}

func (g *Generator) build(ctx context.Context, w *writer) (*Result, error) {
	docs, err := g.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}

	globals := g.cfg.Globals()
	renderer := template.NewRenderer(g.logger)

	entryTmpl, err := g.loadTemplate(g.cfg.EntryTemplate)
	if err != nil {
		return nil, err
	}
	listingTmpl, err := g.loadTemplate(g.cfg.ListingTemplate)
	if err != nil {
		return nil, err
	}

	var outputs []output
	if entryTmpl != nil {
		entries, err := g.renderEntries(ctx, renderer, entryTmpl, globals, docs)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, entries...)
	}
	if listingTmpl != nil {
		outputs = append(outputs, g.renderListings(renderer, listingTmpl, globals, docs)...)
	}
	pages, err := g.renderPages(renderer, globals)
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, pages...)

	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.write(out.path, out.data); err != nil {
			return nil, err
		}
	}

	if err := g.copyStatic(ctx, w); err != nil {
		return nil, err
	}

	return &Result{
		Documents: len(docs),
		Written:   w.written,
		Skipped:   w.skipped,
	}, nil
}

// LoadDocuments discovers and parses every source document in the content
// directory, sorted by DATE, newest first. Documents without a parsable
// date keep their path order after the dated ones.
func (g *Generator) LoadDocuments(ctx context.Context) ([]*source.Document, error) {
	paths, err := discoverSources(g.cfg.ContentDir)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("discovered sources", "dir", g.cfg.ContentDir, "count", len(paths))

	docs := make([]*source.Document, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			doc, err := g.parser.ParseFile(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(docs))
	for _, doc := range docs {
		slug := doc.Slug()
		if slug == "" {
			return nil, fmt.Errorf("%s: empty slug", doc.Path)
		}
		if prev, ok := seen[slug]; ok {
			return nil, fmt.Errorf("duplicate slug %q: %s and %s", slug, prev, doc.Path)
		}
		seen[slug] = doc.Path
	}

	sortByDate(docs)
	return docs, nil
}

func discoverSources(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func sortByDate(docs []*source.Document) {
	type dated struct {
		doc *source.Document
		at  time.Time
		ok  bool
	}
	items := make([]dated, len(docs))
	for i, doc := range docs {
		at, err := datetime.Parse(doc.Date())
		items[i] = dated{doc: doc, at: at, ok: err == nil}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].at.After(items[j].at)
	})
	for i := range items {
		docs[i] = items[i].doc
	}
}

// loadTemplate parses a template from the templates directory. A missing
// template returns nil so the stage using it is skipped.
func (g *Generator) loadTemplate(name string) (*template.Template, error) {
	if name == "" {
		return nil, nil
	}
	path := filepath.Join(g.cfg.TemplatesDir, name)
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if errors.Is(err, fs.ErrNotExist) {
		g.logger.Warn("template not found, skipping", "template", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	tmpl, err := template.Parse(string(data), path)
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}
