// Package output provides terminal styling for CLI messages.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapsite/internal/template"
	"golang.org/x/term"
)

// Styles holds the styles used for CLI messages.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
}

// NewStyles returns colored styles, or plain ones when color is false.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{Error: plain, Warning: plain, Success: plain, Muted: plain, Header: plain}
	}
	return &Styles{
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

// StylesFor returns styles suited to w.
func StylesFor(w io.Writer) *Styles {
	return NewStyles(IsTTY(w))
}

// IsTTY reports whether w is a terminal.
func IsTTY(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// PrintError writes err to w. Template syntax errors are followed by the
// offending line and a caret under the error column.
func PrintError(w io.Writer, err error) {
	s := StylesFor(w)
	_, _ = fmt.Fprintf(w, "%s %v\n", s.Error.Render("Error:"), err)

	var serr *template.SyntaxError
	if errors.As(err, &serr) && serr.LineText != "" {
		_, _ = fmt.Fprintln(w, s.Muted.Render(serr.Snippet()))
	}
}
