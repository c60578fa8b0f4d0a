package template

import (
	"fmt"
	"strings"
)

// Position tracks source location for error reporting.
// Line and Column are 1-based; Column counts bytes. A zero Line means the
// error has no specific location.
type Position struct {
	File   string
	Offset int
	Line   int
	Column int
}

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }

// Message returns the error message without location information.
func (e *baseError) Message() string { return e.msg }

func (e *baseError) Error() string {
	switch {
	case e.pos.Line > 0 && e.pos.File != "":
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	case e.pos.Line > 0:
		return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
	case e.pos.File != "":
		return fmt.Sprintf("%s: %s", e.pos.File, e.msg)
	default:
		return e.msg
	}
}

// SyntaxError is raised at the first invalid character of a template.
type SyntaxError struct {
	baseError
	LineText string // the full source line containing the error
}

// newSyntaxError locates offset inside src and builds the error.
func newSyntaxError(src, file string, offset int, msg string) *SyntaxError {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	lineStart := strings.LastIndexByte(src[:offset], '\n') + 1
	lineEnd := strings.IndexByte(src[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += offset
	}
	return &SyntaxError{
		baseError: baseError{
			pos: Position{
				File:   file,
				Offset: offset,
				Line:   strings.Count(src[:offset], "\n") + 1,
				Column: offset - lineStart + 1,
			},
			msg: msg,
		},
		LineText: strings.TrimRight(src[lineStart:lineEnd], "\r"),
	}
}

// Snippet returns the offending line followed by a caret under the error
// column.
func (e *SyntaxError) Snippet() string {
	col := e.pos.Column - 1
	if col > len(e.LineText) {
		col = len(e.LineText)
	}
	var pad strings.Builder
	for i := 0; i < col; i++ {
		if e.LineText[i] == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return e.LineText + "\n" + pad.String() + "^"
}

// StructureError reports a structure left open at the end of the template,
// such as an unclosed if, block or foreach. It carries no location.
type StructureError struct {
	baseError
}

func newStructureError(file, format string, args ...any) *StructureError {
	return &StructureError{baseError: baseError{pos: Position{File: file}, msg: fmt.Sprintf(format, args...)}}
}
