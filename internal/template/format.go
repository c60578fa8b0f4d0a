package template

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsite/internal/datetime"
)

const (
	formattedSuffix = "_FORMATTED"
	datePrefix      = "DATE_"
	dateFormatVar   = "DATE_FORMAT"
)

// lookup resolves name in the local scope, when inside a block, and then in
// the global scope.
func (m *machine) lookup(name string) (string, bool) {
	if m.insideBlock {
		if v, ok := m.local.Get(name); ok {
			return v, true
		}
	}
	return m.ctx.Global.Get(name)
}

// format resolves a variable reference, applying the formatting suffixes:
//
//	NAME_<N>         truncate the value to N bytes
//	NAME_FORMATTED   format a DATE_* value with DATE_FORMAT
//
// Both may be combined as NAME_FORMATTED_<N>. A variable that is defined with
// its full name is returned verbatim.
func (m *machine) format(name string) (string, bool) {
	if v, ok := m.lookup(name); ok {
		return v, true
	}
	if name == ForeachItem {
		return m.currentItem()
	}
	if name == "" {
		return "", false
	}

	stem := name
	size := -1
	i := len(stem) - 1
	for i > 0 && stem[i] >= '0' && stem[i] <= '9' {
		i--
	}
	if stem[i] == '_' && i+1 < len(stem) {
		n, err := strconv.Atoi(stem[i+1:])
		if err != nil {
			m.logger.Warn("invalid variable size, ignoring", slog.String("variable", name))
		} else {
			size = n
			stem = stem[:i]
		}
	}

	mustFormat := false
	if strings.HasSuffix(stem, formattedSuffix) {
		stem = strings.TrimSuffix(stem, formattedSuffix)
		mustFormat = true
	}

	var value string
	var ok bool
	if stem == ForeachItem {
		value, ok = m.currentItem()
	} else {
		value, ok = m.lookup(stem)
	}
	if !ok {
		return "", false
	}

	if mustFormat {
		if strings.HasPrefix(name, datePrefix) {
			value = m.formatDate(name, value)
		} else {
			m.logger.Warn("no formatter found for variable, ignoring", slog.String("variable", stem))
		}
	}

	if size > 0 && size < len(value) {
		value = value[:size]
	}
	return value, true
}

// formatDate converts a date value with the DATE_FORMAT variable, falling
// back to the raw value when it cannot be parsed.
func (m *machine) formatDate(name, value string) string {
	format, _ := m.lookup(dateFormatVar)
	formatted, err := datetime.Convert(value, format)
	if err != nil {
		m.logger.Warn("failed to format date, using raw value",
			slog.String("variable", name),
			slog.String("error", err.Error()))
		return value
	}
	return formatted
}
