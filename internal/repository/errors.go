package repository

import (
	"errors"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
)

// AsAppError classifies a store error for callers. Errors that already carry a
// kind are returned as they are.
func AsAppError(err error) error {
	var appErr *apperrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrConflict):
		return apperrors.Conflict(err, "The record was modified by another request, please try again")
	case errors.Is(err, ErrDuplicate):
		return apperrors.Conflict(err, "A record with the same key already exists")
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound("Record not found")
	default:
		return apperrors.Internal(err, "Internal server error")
	}
}
