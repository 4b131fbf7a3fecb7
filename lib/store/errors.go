package store

import (
	"errors"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind is the closed set of failure kinds
type Kind string

const (
	KindNotFound     Kind = "NotFound"
	KindDuplicate    Kind = "Duplicate"
	KindUnauthorized Kind = "Unauthorized"
	KindUnexpected   Kind = "Unexpected"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindNotFound, KindDuplicate, KindUnauthorized, KindUnexpected:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error value returned by stores, the id allocator and the
// remote clients. Message, Info and Method are optional and attached after
// construction with the With* methods, which return a modified copy.
type Error struct {
	Kind    Kind   // The failure kind
	Message string // Free text describing the failure
	Info    string // Diagnostic context, usually the store name
	Method  string // The originating operation
}

// Sentinels for errors.Is, they match any *Error of the same kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrDuplicate    = &Error{Kind: KindDuplicate}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrUnexpected   = &Error{Kind: KindUnexpected}
)

func NotFound() *Error     { return &Error{Kind: KindNotFound} }
func Duplicate() *Error    { return &Error{Kind: KindDuplicate} }
func Unauthorized() *Error { return &Error{Kind: KindUnauthorized} }
func Unexpected() *Error   { return &Error{Kind: KindUnexpected} }

// NewError creates an error of the given kind. Unknown kinds become Unexpected.
func NewError(kind Kind) *Error {
	if !kind.Valid() {
		kind = KindUnexpected
	}
	return &Error{Kind: kind}
}

func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

func (e *Error) WithMessagef(format string, args ...any) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

func (e *Error) WithInfo(info string) *Error {
	c := *e
	c.Info = info
	return &c
}

func (e *Error) WithInfof(format string, args ...any) *Error {
	return e.WithInfo(fmt.Sprintf(format, args...))
}

func (e *Error) WithMethod(method string) *Error {
	c := *e
	c.Method = method
	return &c
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Method != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Method)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Info != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Info)
		sb.WriteString(")")
	}
	return sb.String()
}

// Is matches errors of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the attached context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// KindOf returns the kind of err. Errors that are not *Error are Unexpected,
// nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// AsError returns err as *Error. Other errors are wrapped as Unexpected with
// the error text as message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected().WithMessage(err.Error())
}
