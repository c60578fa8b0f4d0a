package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/state"
	"github.com/leapstack-labs/leapsite/internal/testutil"
	"github.com/leapstack-labs/leapsite/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	entryTemplate   = `{% block entry %}<h1>{{ TITLE }}</h1>{{ DATE_FORMATTED }}{% endblock %}`
	listingTemplate = `{% block listing_once %}[{{ CURRENT_PAGE }}/{{ LAST_PAGE }}]{% endblock %}` +
		`{% block listing %}<{{ SLUG }}>{% endblock %}` +
		`{% block listing_empty %}nothing{% endblock %}` +
		`{% ifdef PREVIOUS_PAGE %}prev={{ PREVIOUS_PAGE }}{% endif %}` +
		`{% ifdef NEXT_PAGE %}next={{ NEXT_PAGE }}{% endif %}`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// setupSite creates a project with three dated posts and one undated post.
func setupSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.ProjectRoot = root
	cfg.ContentDir = filepath.Join(root, "content")
	cfg.TemplatesDir = filepath.Join(root, "templates")
	cfg.StaticDir = filepath.Join(root, "static")
	cfg.OutputDir = filepath.Join(root, "public")
	cfg.PostsPerPage = 2
	cfg.DateFormat = "%Y-%m-%d"
	cfg.Variables = map[string]string{"site_title": "Test"}

	writeFile(t, filepath.Join(cfg.TemplatesDir, "entry.html"), entryTemplate)
	writeFile(t, filepath.Join(cfg.TemplatesDir, "listing.html"), listingTemplate)

	writeFile(t, filepath.Join(cfg.ContentDir, "first.md"), "TITLE: First\nDATE: 2024-01-01\n---\nHello.\n")
	writeFile(t, filepath.Join(cfg.ContentDir, "2024", "second.md"), "TITLE: Second\nDATE: 2024-02-01 10:00\n---\nWorld.\n")
	writeFile(t, filepath.Join(cfg.ContentDir, "third.txt"), "TITLE: Third\nDATE: 2024-03-01\n---\nAgain.\n")
	writeFile(t, filepath.Join(cfg.ContentDir, "draft.md"), "TITLE: Draft\n---\nNo date.\n")
	writeFile(t, filepath.Join(cfg.ContentDir, "notes.html"), "ignored")
	writeFile(t, filepath.Join(cfg.ContentDir, ".hidden", "secret.md"), "TITLE: Secret\n---\n")
	return cfg
}

func newTestGenerator(t *testing.T, cfg *config.Config, store core.Store) *Generator {
	t.Helper()
	g, err := NewGenerator(Options{Config: cfg, Store: store, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return g
}

func newTestStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewGenerator_RequiresConfig(t *testing.T) {
	_, err := NewGenerator(Options{})
	assert.Error(t, err)
}

func TestGenerator_LoadDocuments(t *testing.T) {
	cfg := setupSite(t)
	g := newTestGenerator(t, cfg, nil)

	docs, err := g.LoadDocuments(context.Background())
	require.NoError(t, err)

	var slugs []string
	for _, doc := range docs {
		slugs = append(slugs, doc.Slug())
	}
	assert.Equal(t, []string{"third", "second", "first", "draft"}, slugs)
}

func TestGenerator_LoadDocumentsDuplicateSlug(t *testing.T) {
	cfg := setupSite(t)
	writeFile(t, filepath.Join(cfg.ContentDir, "other", "first.md"), "TITLE: Again\n---\n")

	_, err := newTestGenerator(t, cfg, nil).LoadDocuments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate slug "first"`)
}

func TestGenerator_LoadDocumentsParseError(t *testing.T) {
	cfg := setupSite(t)
	writeFile(t, filepath.Join(cfg.ContentDir, "broken.md"), "no separator here\n")

	_, err := newTestGenerator(t, cfg, nil).LoadDocuments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.md:1")
}

func TestGenerator_Build(t *testing.T) {
	cfg := setupSite(t)
	g := newTestGenerator(t, cfg, nil)

	result, err := g.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Documents)
	assert.Empty(t, result.BuildID)
	assert.ElementsMatch(t, []string{
		"post/first/index.html",
		"post/second/index.html",
		"post/third/index.html",
		"post/draft/index.html",
		"index.html",
		"page/2/index.html",
	}, result.Written)

	assert.Equal(t, "<h1>First</h1>2024-01-01", readOutput(t, cfg, "post/first/index.html"))
	assert.Equal(t, "<h1>Second</h1>2024-02-01", readOutput(t, cfg, "post/second/index.html"))
	assert.Equal(t, "[1/2]<third><second>next=2", readOutput(t, cfg, "index.html"))
	assert.Equal(t, "[2/2]<first><draft>prev=1", readOutput(t, cfg, "page/2/index.html"))
}

func TestGenerator_BuildEmptyContent(t *testing.T) {
	cfg := setupSite(t)
	require.NoError(t, os.RemoveAll(cfg.ContentDir))
	require.NoError(t, os.MkdirAll(cfg.ContentDir, 0o750))

	result, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html"}, result.Written)
	assert.Equal(t, "[1/1]nothing", readOutput(t, cfg, "index.html"))
}

func TestGenerator_BuildWithoutIndexOutput(t *testing.T) {
	cfg := setupSite(t)
	cfg.IndexOutput = ""

	result, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Written, "page/1/index.html")
	assert.NotContains(t, result.Written, "index.html")
}

func TestGenerator_BuildMissingTemplates(t *testing.T) {
	cfg := setupSite(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.TemplatesDir, "listing.html")))

	result, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Written, 4)
	for _, p := range result.Written {
		assert.True(t, strings.HasPrefix(p, "post/"), p)
	}
}

func TestGenerator_BuildTemplateSyntaxError(t *testing.T) {
	cfg := setupSite(t)
	writeFile(t, filepath.Join(cfg.TemplatesDir, "entry.html"), "{% block entry %}{{ TITLE }")

	_, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry.html")
}

func TestGenerator_BuildPages(t *testing.T) {
	cfg := setupSite(t)
	writeFile(t, filepath.Join(cfg.ProjectRoot, "pages", "about.md"), "TITLE: About\n---\nAbout me.\n")
	writeFile(t, filepath.Join(cfg.TemplatesDir, "page.html"), "{% block entry %}{{ SITE_TITLE }}: {{ TITLE }}{% endblock %}")
	cfg.Pages = []config.PageConfig{{
		Source:   filepath.Join(cfg.ProjectRoot, "pages", "about.md"),
		Template: "page.html",
		Output:   "about/index.html",
	}}

	result, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Written, "about/index.html")
	assert.Equal(t, "Test: About", readOutput(t, cfg, "about/index.html"))

	cfg.Pages[0].Template = "missing.html"
	_, err = newTestGenerator(t, cfg, nil).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.html")
}

func TestGenerator_BuildRejectsEscapingOutput(t *testing.T) {
	cfg := setupSite(t)
	writeFile(t, filepath.Join(cfg.TemplatesDir, "page.html"), "x")
	writeFile(t, filepath.Join(cfg.ProjectRoot, "p.md"), "---\n")
	cfg.Pages = []config.PageConfig{{
		Source:   filepath.Join(cfg.ProjectRoot, "p.md"),
		Template: "page.html",
		Output:   "../outside.html",
	}}

	_, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes the output directory")
}

func TestGenerator_BuildIncremental(t *testing.T) {
	cfg := setupSite(t)
	store := newTestStore(t)
	g := newTestGenerator(t, cfg, store)

	first, err := g.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Written, 6)
	assert.Empty(t, first.Skipped)
	require.NotEmpty(t, first.BuildID)

	writeFile(t, filepath.Join(cfg.ContentDir, "first.md"), "TITLE: First edited\nDATE: 2024-01-01\n---\nHello.\n")

	second, err := g.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"post/first/index.html"}, second.Written)
	assert.Len(t, second.Skipped, 5)

	build, err := store.GetBuild(second.BuildID)
	require.NoError(t, err)
	assert.Equal(t, core.BuildStatusCompleted, build.Status)
	assert.Equal(t, core.BuildStats{Written: 1, Skipped: 5}, build.Stats)

	// a deleted output is rewritten even though its hash is known
	require.NoError(t, os.Remove(filepath.Join(cfg.OutputDir, "index.html")))
	third, err := g.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html"}, third.Written)

	forced, err := NewGenerator(Options{Config: cfg, Store: store, Force: true})
	require.NoError(t, err)
	all, err := forced.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, all.Written, 6)
}

func TestGenerator_BuildFailureIsRecorded(t *testing.T) {
	cfg := setupSite(t)
	writeFile(t, filepath.Join(cfg.ContentDir, "broken.md"), "nope\n")
	store := newTestStore(t)

	_, err := newTestGenerator(t, cfg, store).Build(context.Background())
	require.Error(t, err)

	latest, err := store.GetLatestBuild()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, core.BuildStatusFailed, latest.Status)
	assert.Contains(t, latest.Error, "broken.md")
}

func TestGenerator_BuildCanceled(t *testing.T) {
	cfg := setupSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGenerator(t, cfg, nil).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerator_CopyStatic(t *testing.T) {
	tests := []struct {
		name   string
		minify bool
	}{
		{"plain copy", false},
		{"minified", true},
	}

	const css = ".title {\n    color: red;\n}\n"
	const js = "function add(first, second) {\n  return first + second;\n}\nconsole.log(add(1, 2));\n"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setupSite(t)
			cfg.MinifyAssets = tt.minify
			writeFile(t, filepath.Join(cfg.StaticDir, "css", "style.css"), css)
			writeFile(t, filepath.Join(cfg.StaticDir, "app.js"), js)
			writeFile(t, filepath.Join(cfg.StaticDir, "robots.txt"), "User-agent: *\n")

			result, err := newTestGenerator(t, cfg, nil).Build(context.Background())
			require.NoError(t, err)
			assert.Contains(t, result.Written, "css/style.css")
			assert.Contains(t, result.Written, "app.js")

			assert.Equal(t, "User-agent: *\n", readOutput(t, cfg, "robots.txt"))
			gotCSS := readOutput(t, cfg, "css/style.css")
			gotJS := readOutput(t, cfg, "app.js")
			if !tt.minify {
				assert.Equal(t, css, gotCSS)
				assert.Equal(t, js, gotJS)
				return
			}
			assert.Contains(t, gotCSS, "color:red")
			assert.Less(t, len(gotCSS), len(css))
			assert.Contains(t, gotJS, "console.log")
			assert.Less(t, len(gotJS), len(js))
		})
	}
}

func TestMinify_Error(t *testing.T) {
	cfg := setupSite(t)
	cfg.MinifyAssets = true
	writeFile(t, filepath.Join(cfg.StaticDir, "bad.js"), "function (")

	_, err := newTestGenerator(t, cfg, nil).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to minify")
}

func TestPaginationVars(t *testing.T) {
	tests := []struct {
		page, last int
		keys       []string
	}{
		{1, 1, []string{VarCurrentPage, VarFirstPage, VarLastPage}},
		{1, 3, []string{VarCurrentPage, VarNextPage, VarFirstPage, VarLastPage}},
		{2, 3, []string{VarCurrentPage, VarPreviousPage, VarNextPage, VarFirstPage, VarLastPage}},
		{3, 3, []string{VarCurrentPage, VarPreviousPage, VarFirstPage, VarLastPage}},
	}
	for _, tt := range tests {
		rec := paginationVars(tt.page, tt.last)
		assert.Equal(t, tt.keys, rec.Keys(), "page %d of %d", tt.page, tt.last)
	}
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, contentHash([]byte("a")), contentHash([]byte("a")))
	assert.NotEqual(t, contentHash([]byte("a")), contentHash([]byte("b")))
	assert.Len(t, contentHash(nil), 64)
}
