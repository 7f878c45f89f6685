package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryStream    Category = "stream"
	CategoryTransport Category = "transport"
	CategoryCLI       Category = "cli"
)

// Position locates a diagnostic inside a stream file.
type Position struct {
	File  string
	Seq   uint64
	Index int // -1 when the stream as a whole is at fault
	Op    protocol.EditOp
	ID    protocol.NodeID
}

// String returns the position as a formatted string.
func (p *Position) String() string {
	if p == nil {
		return ""
	}
	s := p.File
	if s != "" {
		s += ": "
	}
	s += fmt.Sprintf("stream %d", p.Seq)
	if p.Index < 0 {
		return s
	}
	s += fmt.Sprintf(", edit %d", p.Index)
	switch {
	case p.Op != 0 && p.ID != 0:
		s += fmt.Sprintf(" (%s id=%d)", p.Op, p.ID)
	case p.Op != 0:
		s += fmt.Sprintf(" (%s)", p.Op)
	}
	return s
}

// Error is a structured diagnostic with a position and a hint.
type Error struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category groups related codes.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Position locates the failing edit for stream diagnostics.
	Position *Position

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithPosition adds a stream position to the error.
func (e *Error) WithPosition(file string, seq uint64, index int) *Error {
	e.Position = &Position{File: file, Seq: seq, Index: index}
	return e
}

// WithRenderError wraps err and, when it carries a *protocol.RenderError,
// copies its position.
func (e *Error) WithRenderError(file string, err error) *Error {
	e.Wrapped = err
	var re *protocol.RenderError
	if stderrors.As(err, &re) {
		e.Position = &Position{File: file, Seq: re.Seq, Index: re.Index, Op: re.Op, ID: re.ID}
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates an Error with a formatted message and no code.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error. Errors that already are
// diagnostics are returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}
