// Package source parses source documents into template records.
//
// A source document starts with a header of "KEY: value" lines, followed by a
// separator line of three or more '-' characters and a markdown body:
//
//	TITLE: Hello world
//	DATE: 2024-03-01 10:00
//	----------
//	# Hello
//
//	First paragraph.
//
// The header keys become record variables as-is. The body is converted to
// HTML and exposed through derived variables (see Parse).
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapsite/pkg/core"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Derived variable names.
const (
	VarFilename    = "FILENAME"
	VarSlug        = "SLUG"
	VarRawContent  = "RAW_CONTENT"
	VarContent     = "CONTENT"
	VarExcerpt     = "EXCERPT"
	VarFirstHeader = "FIRST_HEADER"
	VarDescription = "DESCRIPTION"
	VarDate        = "DATE"
)

// excerptSeparator is a body line that ends the excerpt early.
const excerptSeparator = "..."

// Document is a parsed source document.
type Document struct {
	Path   string
	Record *core.Record
}

// Slug returns the SLUG variable of the document.
func (d *Document) Slug() string {
	s, _ := d.Record.Get(VarSlug)
	return s
}

// Date returns the raw DATE variable of the document.
func (d *Document) Date() string {
	s, _ := d.Record.Get(VarDate)
	return s
}

// Parser converts source documents into records. It is safe for concurrent
// use.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a parser with GitHub flavored markdown enabled.
func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
	}
}

// ParseFile reads and parses the source document at path.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the content directory walk
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}
	return p.Parse(path, data)
}

// Parse parses a source document. Besides the header keys, the record gets:
//
//	FILENAME      base name of path without extension
//	SLUG          from the header, or derived from FILENAME
//	RAW_CONTENT   the markdown body
//	CONTENT       the body converted to HTML
//	EXCERPT       HTML up to a "..." line, or the first paragraph
//	FIRST_HEADER  text of the first heading, when there is one
//	DESCRIPTION   from the header, or the first paragraph as plain text
func (p *Parser) Parse(path string, data []byte) (*Document, error) {
	rec, body, err := splitHeader(path, data)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rec.Set(VarFilename, filename)
	if !rec.Has(VarSlug) {
		rec.Set(VarSlug, Slugify(filename))
	}

	excerptSrc, content := splitExcerpt(body)
	rec.Set(VarRawContent, content)

	src := []byte(content)
	doc := p.md.Parser().Parse(text.NewReader(src))

	var out bytes.Buffer
	if err := p.md.Renderer().Render(&out, src, doc); err != nil {
		return nil, &ParseError{File: path, Message: fmt.Sprintf("failed to render markdown: %v", err)}
	}
	rec.Set(VarContent, out.String())

	heading, paragraph := firstNodes(doc)

	excerpt := ""
	switch {
	case excerptSrc != "":
		out.Reset()
		if err := p.md.Convert([]byte(excerptSrc), &out); err != nil {
			return nil, &ParseError{File: path, Message: fmt.Sprintf("failed to render excerpt: %v", err)}
		}
		excerpt = out.String()
	case paragraph != nil:
		out.Reset()
		if err := p.md.Renderer().Render(&out, src, paragraph); err != nil {
			return nil, &ParseError{File: path, Message: fmt.Sprintf("failed to render excerpt: %v", err)}
		}
		excerpt = out.String()
	}
	rec.Set(VarExcerpt, excerpt)

	if heading != nil {
		out.Reset()
		if err := p.md.Renderer().Render(&out, src, heading); err == nil {
			rec.Set(VarFirstHeader, PlainText(out.String()))
		}
	}

	if !rec.Has(VarDescription) && paragraph != nil {
		out.Reset()
		if err := p.md.Renderer().Render(&out, src, paragraph); err == nil {
			rec.Set(VarDescription, PlainText(out.String()))
		}
	}

	return &Document{Path: path, Record: rec}, nil
}

// splitHeader parses the header lines and returns the remaining body.
func splitHeader(path string, data []byte) (*core.Record, string, error) {
	rec := core.NewRecord()
	rest := string(data)
	for line := 1; ; line++ {
		if rest == "" {
			return nil, "", &ParseError{File: path, Line: line, Message: "missing '---' separator after header"}
		}
		current := rest
		rest = ""
		if i := strings.IndexByte(current, '\n'); i >= 0 {
			current, rest = current[:i], current[i+1:]
		}
		current = strings.TrimRight(current, "\r")

		if isSeparator(current) {
			return rec, rest, nil
		}
		if strings.TrimSpace(current) == "" {
			continue
		}

		colon := strings.IndexByte(current, ':')
		if colon < 0 {
			return nil, "", &ParseError{File: path, Line: line, Message: "expected 'KEY: value' header line or '---' separator"}
		}
		key := strings.TrimSpace(current[:colon])
		if key == "" {
			return nil, "", &ParseError{File: path, Line: line, Message: "empty header key"}
		}
		if !core.IsVariableName(key) {
			return nil, "", &ParseError{File: path, Line: line, Message: fmt.Sprintf("invalid header key %q: must match [A-Z][A-Z0-9_]*", key)}
		}
		rec.Set(key, strings.TrimSpace(current[colon+1:]))
	}
}

func isSeparator(line string) bool {
	line = strings.TrimRight(line, " \t")
	if len(line) < 3 {
		return false
	}
	return strings.Trim(line, "-") == ""
}

// splitExcerpt returns the text before a "..." line and the body with that
// line removed. Without such a line the excerpt is empty.
func splitExcerpt(body string) (string, string) {
	lines := strings.SplitAfter(body, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) == excerptSeparator {
			before := strings.Join(lines[:i], "")
			return before, before + strings.Join(lines[i+1:], "")
		}
	}
	return "", body
}

// firstNodes returns the first heading and the first top-level paragraph.
func firstNodes(doc ast.Node) (heading, paragraph ast.Node) {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.Kind() {
		case ast.KindHeading:
			if heading == nil {
				heading = n
			}
		case ast.KindParagraph:
			if paragraph == nil {
				paragraph = n
			}
		}
		if heading != nil && paragraph != nil {
			break
		}
	}
	return heading, paragraph
}

// ParseError represents a source document parsing error.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}
