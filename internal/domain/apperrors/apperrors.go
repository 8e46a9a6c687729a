// Package apperrors defines the error taxonomy shared by services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for transport mapping.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindInvalidSettlement Kind = "INVALID_SETTLEMENT"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

// Error is a classified, user-facing error. Message is safe to return to callers;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing referenced entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock reports that a movement would drive an item's quantity negative.
func InsufficientStock(itemName string, available, required int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock for %s. Available: %d, Required: %d", itemName, available, required),
	}
}

// InvalidSettlement reports a rejected settlement.
func InvalidSettlement(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidSettlement, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a concurrent modification detected by the store or the lock layer.
func Conflict(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Internal wraps an unexpected failure.
func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Aborted reclassifies a not-found raised inside a transaction: the request named
// something that does not exist, which is reported as bad input rather than a
// missing resource. Other errors are returned unchanged.
func Aborted(err error) error {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind == KindNotFound {
		return &Error{Kind: KindValidation, Message: appErr.Message, Err: err}
	}
	return err
}
