package service

import (
	"errors"
	"fmt"

	"parenthub/internal/repository"
)

// Kind classifies every failure the discussion service reports.
type Kind string

const (
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindForbidden        Kind = "FORBIDDEN"
	KindNotFound         Kind = "NOT_FOUND"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
)

// Error is the only error type returned across the service boundary.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is; only the kind is compared.
var (
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a service error, or "" for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// storeError translates a repository failure. A missing record becomes
// NotFound with the given message; everything else is StoreUnavailable.
func storeError(op, notFoundMessage string, err error) *Error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Message: notFoundMessage}
	}
	return &Error{Kind: KindStoreUnavailable, Op: op, Message: "record store unavailable", Err: err}
}
