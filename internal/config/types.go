// Package config provides configuration management for leapsite.
//
// Configuration is layered with koanf. Precedence, highest to lowest:
// explicit CLI flags, LEAPSITE_* environment variables, leapsite.yaml,
// built-in defaults.
package config

import "github.com/leapstack-labs/leapsite/pkg/core"

// PageConfig is an alias for the shared page configuration.
type PageConfig = core.PageConfig

// ServeConfig is an alias for the shared dev server configuration.
type ServeConfig = core.ServeConfig

// Config holds all site configuration options.
type Config struct {
	ContentDir      string            `koanf:"content_dir" yaml:"content_dir"`
	TemplatesDir    string            `koanf:"templates_dir" yaml:"templates_dir"`
	StaticDir       string            `koanf:"static_dir" yaml:"static_dir"`
	OutputDir       string            `koanf:"output_dir" yaml:"output_dir"`
	StatePath       string            `koanf:"state_path" yaml:"state_path"`
	PostsPerPage    int               `koanf:"posts_per_page" yaml:"posts_per_page"`
	DateFormat      string            `koanf:"date_format" yaml:"date_format,omitempty"`
	Verbose         bool              `koanf:"verbose" yaml:"verbose"`
	MinifyAssets    bool              `koanf:"minify_assets" yaml:"minify_assets"`
	EntryTemplate   string            `koanf:"entry_template" yaml:"entry_template"`
	ListingTemplate string            `koanf:"listing_template" yaml:"listing_template"`
	EntryOutput     string            `koanf:"entry_output" yaml:"entry_output"`
	ListingOutput   string            `koanf:"listing_output" yaml:"listing_output"`
	IndexOutput     string            `koanf:"index_output" yaml:"index_output"`
	Variables       map[string]string `koanf:"variables" yaml:"variables,omitempty"`
	Pages           []PageConfig      `koanf:"pages" yaml:"pages,omitempty"`
	Serve           ServeConfig       `koanf:"serve" yaml:"serve"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-" yaml:"-"`
}

// Default configuration values.
const (
	ConfigFileName    = "leapsite.yaml"
	ConfigFileNameAlt = "leapsite.yml"
	EnvPrefix         = "LEAPSITE_"

	DefaultContentDir      = "content"
	DefaultTemplatesDir    = "templates"
	DefaultStaticDir       = "static"
	DefaultOutputDir       = "public"
	DefaultStateFile       = ".leapsite/state.db"
	DefaultPostsPerPage    = 10
	DefaultEntryTemplate   = "entry.html"
	DefaultListingTemplate = "listing.html"
	DefaultEntryOutput     = "post/{slug}/index.html"
	DefaultListingOutput   = "page/{page}/index.html"
	DefaultIndexOutput     = "index.html"
	DefaultServePort       = 8080
	DefaultServeHost       = "127.0.0.1"
)

// Output path placeholders.
const (
	SlugPlaceholder = "{slug}"
	PagePlaceholder = "{page}"
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		ContentDir:      DefaultContentDir,
		TemplatesDir:    DefaultTemplatesDir,
		StaticDir:       DefaultStaticDir,
		OutputDir:       DefaultOutputDir,
		StatePath:       DefaultStateFile,
		PostsPerPage:    DefaultPostsPerPage,
		EntryTemplate:   DefaultEntryTemplate,
		ListingTemplate: DefaultListingTemplate,
		EntryOutput:     DefaultEntryOutput,
		ListingOutput:   DefaultListingOutput,
		IndexOutput:     DefaultIndexOutput,
		Serve:           ServeConfig{Port: DefaultServePort, Host: DefaultServeHost},
	}
}

func defaultsMap() map[string]interface{} {
	return map[string]interface{}{
		"content_dir":      DefaultContentDir,
		"templates_dir":    DefaultTemplatesDir,
		"static_dir":       DefaultStaticDir,
		"output_dir":       DefaultOutputDir,
		"state_path":       DefaultStateFile,
		"posts_per_page":   DefaultPostsPerPage,
		"verbose":          false,
		"minify_assets":    false,
		"entry_template":   DefaultEntryTemplate,
		"listing_template": DefaultListingTemplate,
		"entry_output":     DefaultEntryOutput,
		"listing_output":   DefaultListingOutput,
		"index_output":     DefaultIndexOutput,
		"serve.port":       DefaultServePort,
		"serve.host":       DefaultServeHost,
	}
}
