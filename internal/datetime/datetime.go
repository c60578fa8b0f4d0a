// Package datetime converts the date strings found in source documents into
// human readable text using strftime(3) style formats.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultFormat is used when no DATE_FORMAT variable is defined.
const DefaultFormat = "%b %d, %Y, %I:%M %p GMT"

// layouts are tried in order. Dates without a zone are taken as UTC.
var layouts = []string{
	"2006-01-02",
	"2006-01-02 15",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseError reports a date string that matches none of the accepted layouts.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid datetime string %q: expected YYYY-MM-DD[ HH[:MM[:SS]]] or RFC 3339", e.Value)
}

// Parse parses a source document date.
func Parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Value: value}
}

// Convert parses value and formats it with the strftime format. An empty
// format selects DefaultFormat.
func Convert(value, format string) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	if format == "" {
		format = DefaultFormat
	}
	return strftime.Format(format, t.UTC()), nil
}
