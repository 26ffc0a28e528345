// Package errs defines the error taxonomy shared by every service.
//
// Each failure carries a Kind so callers can branch on the class of error
// instead of parsing message text. Storage failures wrap the underlying
// error for logs but expose only a generic message to callers.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the wire payload.
type Kind int

const (
	// KindValidation covers malformed input: bad ID format, out-of-range
	// lengths, invalid role, invalid email, bad dates or amounts.
	KindValidation Kind = iota + 1

	// KindUnauthorized means the actor lacks the required role or membership.
	KindUnauthorized

	// KindNotFound means the referenced group, member, user, or expense
	// does not exist or is inactive.
	KindNotFound

	// KindInvariant means the action would violate a consistency rule,
	// such as last-admin protection or personal-group immutability.
	KindInvariant

	// KindStore means an underlying read or write failed.
	KindStore
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a classified, user-presentable error.
type Error struct {
	Kind    Kind
	Message string

	// Err holds the underlying cause, if any. It is logged, never
	// returned to callers.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Invariant builds a KindInvariant error.
func Invariant(format string, args ...any) error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}

// Store wraps an underlying storage failure behind a generic message so
// storage internals never leak to callers.
func Store(err error) error {
	return &Error{Kind: KindStore, Message: "storage operation failed", Err: err}
}

// KindOf returns the kind of err, or 0 if err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
