package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsite/pkg/core"
	"gopkg.in/yaml.v3"
)

// DateFormatVariable is the global variable carrying the date format.
const DateFormatVariable = "DATE_FORMAT"

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PostsPerPage < 1 {
		return fmt.Errorf("posts_per_page must be at least 1, got %d", c.PostsPerPage)
	}
	if !strings.Contains(c.EntryOutput, SlugPlaceholder) {
		return fmt.Errorf("entry_output %q must contain %s", c.EntryOutput, SlugPlaceholder)
	}
	if !strings.Contains(c.ListingOutput, PagePlaceholder) {
		return fmt.Errorf("listing_output %q must contain %s", c.ListingOutput, PagePlaceholder)
	}
	for name := range c.Variables {
		if !core.IsVariableName(strings.ToUpper(name)) {
			return fmt.Errorf("invalid variable name %q: must match [A-Z][A-Z0-9_]*", name)
		}
	}
	for i, p := range c.Pages {
		if p.Source == "" || p.Template == "" || p.Output == "" {
			return fmt.Errorf("pages[%d]: source, template and output are required", i)
		}
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port %d out of range", c.Serve.Port)
	}
	return nil
}

// ValidateDirectories checks if the directories a build reads exist.
func (c *Config) ValidateDirectories() error {
	for _, dir := range []string{c.ContentDir, c.TemplatesDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s\nHint: Create the directory or set it in %s", dir, ConfigFileName)
		}
	}
	return nil
}

// Globals builds the global variable mapping handed to templates. Variable
// names are upper-cased and sorted; date_format fills DATE_FORMAT unless a
// variable already defines it.
func (c *Config) Globals() *core.Record {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	rec := core.NewRecord()
	for _, name := range names {
		rec.Set(strings.ToUpper(name), c.Variables[name])
	}
	if c.DateFormat != "" && !rec.Has(DateFormatVariable) {
		rec.Set(DateFormatVariable, c.DateFormat)
	}
	return rec
}

// Dump writes the effective configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
