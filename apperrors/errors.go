// Package apperrors defines the error taxonomy shared by the loader, the
// query engine and the validation layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind categorises an Error.
type Kind string

const (
	// KindSourceUnavailable means the source bytes could not be retrieved.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindParse means the source could not be reconciled with the schema.
	KindParse Kind = "parse"
	// KindEmptyInput means a computation received zero usable rows.
	KindEmptyInput Kind = "empty_input"
	// KindInsufficientRows means more rows were requested than exist.
	KindInsufficientRows Kind = "insufficient_rows"
	// KindInvalidRange means a user-supplied range has min > max.
	KindInvalidRange Kind = "invalid_range"
	// KindInvalidArgument covers other rejected arguments (unknown column, bad n).
	KindInvalidArgument Kind = "invalid_argument"
)

// Sentinels for use with errors.Is.
var (
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrParse             = &Error{Kind: KindParse}
	ErrEmptyInput        = &Error{Kind: KindEmptyInput}
	ErrInsufficientRows  = &Error{Kind: KindInsufficientRows}
	ErrInvalidRange      = &Error{Kind: KindInvalidRange}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
)

// Error is a categorised error with optional cause and details.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, so sentinels match
// any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a kind and message. It returns nil for a nil err.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return KindParse
	}
	return ""
}

// ParseError reports a row that could not be reconciled with the schema.
// Row is 1-based and counts the header line, matching what an editor shows.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("parse: row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("parse: row %d, column %q (value %q): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrParse) match a *ParseError.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindParse
}
