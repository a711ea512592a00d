// ABOUTME: Error taxonomy surfaced at the HTTP boundary
// ABOUTME: Each Kind maps to exactly one status code; anything unclassified is internal

package auth

import (
	"errors"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindBadRequest
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad request"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a client-safe reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error // optional cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target carries no reason,
// so errors.Is(err, ErrUnauthorized) works for every unauthorized failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// Kind sentinels for errors.Is
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrBadRequest   = &Error{Kind: KindBadRequest}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

func Unauthorized(reason string) *Error { return &Error{Kind: KindUnauthorized, Reason: reason} }
func BadRequest(reason string) *Error   { return &Error{Kind: KindBadRequest, Reason: reason} }
func Conflict(reason string) *Error     { return &Error{Kind: KindConflict, Reason: reason} }
func Forbidden(reason string) *Error    { return &Error{Kind: KindForbidden, Reason: reason} }

// KindOf reports the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
