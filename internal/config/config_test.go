package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultContentDir), cfg.ContentDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultOutputDir), cfg.OutputDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultPostsPerPage, cfg.PostsPerPage)
	assert.Equal(t, DefaultEntryOutput, cfg.EntryOutput)
	assert.Equal(t, DefaultIndexOutput, cfg.IndexOutput)
	assert.Equal(t, DefaultServePort, cfg.Serve.Port)
	assert.False(t, cfg.MinifyAssets)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("BLOG_NAME", "bola")
	dir := t.TempDir()
	path := writeConfig(t, dir, `content_dir: posts
posts_per_page: 3
date_format: "%Y-%m-%d"
minify_assets: true
variables:
  site_title: "Blog of ${BLOG_NAME}"
  AUTHOR: someone
pages:
  - source: pages/about.md
    template: page.html
    output: about/index.html
serve:
  port: 9000
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "posts"), cfg.ContentDir)
	assert.Equal(t, filepath.Join(dir, DefaultTemplatesDir), cfg.TemplatesDir)
	assert.Equal(t, 3, cfg.PostsPerPage)
	assert.True(t, cfg.MinifyAssets)
	assert.Equal(t, 9000, cfg.Serve.Port)
	assert.Equal(t, DefaultServeHost, cfg.Serve.Host)
	assert.Equal(t, "Blog of bola", cfg.Variables["site_title"])

	require.Len(t, cfg.Pages, 1)
	assert.Equal(t, filepath.Join(dir, "pages", "about.md"), cfg.Pages[0].Source)
	assert.Equal(t, "page.html", cfg.Pages[0].Template)
	assert.Equal(t, "about/index.html", cfg.Pages[0].Output)

	globals := cfg.Globals()
	assert.Equal(t, []string{"AUTHOR", "SITE_TITLE", DateFormatVariable}, globals.Keys())
	v, _ := globals.Get(DateFormatVariable)
	assert.Equal(t, "%Y-%m-%d", v)
}

func TestLoad_FlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	path := writeConfig(t, dir, "output_dir: from_file\n")
	t.Setenv("LEAPSITE_OUTPUT_DIR", "from_env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output-dir", "", "output directory")
	flags.Int("port", 0, "port")
	require.NoError(t, flags.Set("output-dir", "from_flag"))
	require.NoError(t, flags.Set("port", "4000"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "from_flag"), cfg.OutputDir, "flag value should override config file and env var")
	assert.Equal(t, 4000, cfg.Serve.Port)
}

func TestLoad_EnvPrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "output_dir: from_file\nserve:\n  port: 9000\n")
	t.Setenv("LEAPSITE_OUTPUT_DIR", "from_env")
	t.Setenv("LEAPSITE_SERVE_PORT", "9999")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from_env"), cfg.OutputDir, "env var should override config file")
	assert.Equal(t, 9999, cfg.Serve.Port)
}

func TestLoad_FlagNotSetUsesEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "output_dir: from_file\n")
	t.Setenv("LEAPSITE_OUTPUT_DIR", "from_env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output-dir", "", "output directory")

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from_env"), cfg.OutputDir, "env var should be used when flag is not set")
}

func TestLoad_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "content_dir: posts\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(root, "posts"), cfg.ContentDir)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)

	bad := writeConfig(t, dir, "content_dir: [unclosed\n")
	_, err = Load(bad, nil)
	assert.Error(t, err)

	invalid := writeConfig(t, dir, "posts_per_page: 0\n")
	_, err = Load(invalid, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "posts_per_page")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		errSubstr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero posts per page", func(c *Config) { c.PostsPerPage = 0 }, "posts_per_page"},
		{"entry output without slug", func(c *Config) { c.EntryOutput = "post.html" }, "{slug}"},
		{"listing output without page", func(c *Config) { c.ListingOutput = "list.html" }, "{page}"},
		{"lowercase variable is upper-cased", func(c *Config) { c.Variables = map[string]string{"site": "x"} }, ""},
		{"invalid variable name", func(c *Config) { c.Variables = map[string]string{"site-name": "x"} }, "invalid variable name"},
		{"incomplete page", func(c *Config) { c.Pages = []PageConfig{{Source: "a.md"}} }, "pages[0]"},
		{"port out of range", func(c *Config) { c.Serve.Port = 70000 }, "serve.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.ContentDir = filepath.Join(dir, "content")
	cfg.TemplatesDir = filepath.Join(dir, "templates")

	require.Error(t, cfg.ValidateDirectories())

	require.NoError(t, os.Mkdir(cfg.ContentDir, 0o750))
	require.NoError(t, os.Mkdir(cfg.TemplatesDir, 0o750))
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestConfig_GlobalsVariableWins(t *testing.T) {
	cfg := Default()
	cfg.DateFormat = "%Y"
	cfg.Variables = map[string]string{"date_format": "%d"}

	v, ok := cfg.Globals().Get(DateFormatVariable)
	require.True(t, ok)
	assert.Equal(t, "%d", v)
}

func TestConfig_Dump(t *testing.T) {
	cfg := Default()
	cfg.ProjectRoot = "/somewhere"
	cfg.Variables = map[string]string{"TITLE": "x"}

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))

	out := buf.String()
	assert.Contains(t, out, "content_dir: content\n")
	assert.Contains(t, out, "posts_per_page: 10\n")
	assert.Contains(t, out, "variables:\n  TITLE: x\n")
	assert.Contains(t, out, "serve:\n  port: 8080\n")
	assert.NotContains(t, out, "/somewhere")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"variable in text", "a ${TEST_VAR_ONE} b", "a value_one b"},
		{"unset variable stays as-is", "${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"no variables", "plain string", "plain string"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestGetConfig(t *testing.T) {
	assert.Equal(t, Default(), GetConfig(context.Background()))

	cfg := Default()
	cfg.PostsPerPage = 3
	assert.Same(t, cfg, GetConfig(WithConfig(context.Background(), cfg)))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := GetLogger(WithLogger(context.Background(), nil))
	assert.NotNil(t, logger)
}
