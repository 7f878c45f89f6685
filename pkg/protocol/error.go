package protocol

import (
	"errors"
	"fmt"
)

// Protocol error kinds. Interpreters, registries, and bridges wrap these so
// callers can classify failures with errors.Is.
var (
	// ErrUnknownID is returned when a NodeID is not registered.
	ErrUnknownID = errors.New("protocol: unknown node id")

	// ErrMalformedStream is returned on stack underflow, nonzero trailing
	// depth, or an unknown edit tag.
	ErrMalformedStream = errors.New("protocol: malformed edit stream")

	// ErrDuplicateID is returned when a live NodeID is registered again.
	ErrDuplicateID = errors.New("protocol: duplicate node id")

	// ErrUnsupportedEvent is returned when a native event has no canonical mapping.
	ErrUnsupportedEvent = errors.New("protocol: unsupported event")

	// ErrIncompatiblePlatform is returned when a native reference cannot be
	// downcast to the requested kind.
	ErrIncompatiblePlatform = errors.New("protocol: incompatible platform")

	// ErrBudgetExceeded is returned when applying a stream exceeds its time budget.
	ErrBudgetExceeded = errors.New("protocol: apply budget exceeded")
)

// RenderError locates a batch failure inside a stream.
type RenderError struct {
	Seq   uint64 // Stream sequence
	Index int    // Edit index; equals the stream length for trailing-depth errors
	Op    EditOp // Failing edit, zero for trailing-depth errors
	ID    NodeID // Offending id, if any
	Err   error  // Underlying kind
}

// Error returns the error message with stream context.
func (e *RenderError) Error() string {
	if e.Op == 0 {
		return fmt.Sprintf("stream %d: edit %d: %v", e.Seq, e.Index, e.Err)
	}
	if e.ID != 0 || e.Err == ErrUnknownID || e.Err == ErrDuplicateID {
		return fmt.Sprintf("stream %d: edit %d (%s id=%d): %v", e.Seq, e.Index, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("stream %d: edit %d (%s): %v", e.Seq, e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether err leaves the current batch intact. Event
// translation failures are recoverable; every batch failure requires a
// rebuild.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnsupportedEvent) || errors.Is(err, ErrIncompatiblePlatform)
}

// ErrorCode identifies the type of error on the wire.
type ErrorCode uint16

const (
	CodeOK                   ErrorCode = 0x0000 // No error
	CodeUnknownID            ErrorCode = 0x0001 // Lookup of unregistered id
	CodeMalformedStream      ErrorCode = 0x0002 // Underflow or trailing depth
	CodeDuplicateID          ErrorCode = 0x0003 // Register on a live id
	CodeUnsupportedEvent     ErrorCode = 0x0004 // No canonical mapping
	CodeIncompatiblePlatform ErrorCode = 0x0005 // Downcast failed
	CodeBudgetExceeded       ErrorCode = 0x0006 // Apply exceeded budget
	CodeInvalidFrame         ErrorCode = 0x0010 // Malformed frame
	CodeInternal             ErrorCode = 0x0100 // Internal error
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case CodeOK:
		return "OK"
	case CodeUnknownID:
		return "UnknownId"
	case CodeMalformedStream:
		return "MalformedStream"
	case CodeDuplicateID:
		return "DuplicateId"
	case CodeUnsupportedEvent:
		return "UnsupportedEvent"
	case CodeIncompatiblePlatform:
		return "IncompatiblePlatform"
	case CodeBudgetExceeded:
		return "BudgetExceeded"
	case CodeInvalidFrame:
		return "InvalidFrame"
	case CodeInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Err returns the sentinel for a code, or nil for CodeOK.
func (ec ErrorCode) Err() error {
	switch ec {
	case CodeOK:
		return nil
	case CodeUnknownID:
		return ErrUnknownID
	case CodeMalformedStream:
		return ErrMalformedStream
	case CodeDuplicateID:
		return ErrDuplicateID
	case CodeUnsupportedEvent:
		return ErrUnsupportedEvent
	case CodeIncompatiblePlatform:
		return ErrIncompatiblePlatform
	case CodeBudgetExceeded:
		return ErrBudgetExceeded
	default:
		return &ErrorMessage{Code: ec, Message: ec.String()}
	}
}

// CodeOf classifies err into a wire code.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrUnknownID):
		return CodeUnknownID
	case errors.Is(err, ErrMalformedStream):
		return CodeMalformedStream
	case errors.Is(err, ErrDuplicateID):
		return CodeDuplicateID
	case errors.Is(err, ErrUnsupportedEvent):
		return CodeUnsupportedEvent
	case errors.Is(err, ErrIncompatiblePlatform):
		return CodeIncompatiblePlatform
	case errors.Is(err, ErrBudgetExceeded):
		return CodeBudgetExceeded
	}
	var em *ErrorMessage
	if errors.As(err, &em) {
		return em.Code
	}
	return CodeInternal
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Code    ErrorCode // Error code
	Message string    // Human-readable error message
	Fatal   bool      // If true, connection should be closed
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)

	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}

	return &ErrorMessage{
		Code:    ErrorCode(code),
		Message: message,
		Fatal:   fatal,
	}, nil
}

// NewError creates a new non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}
