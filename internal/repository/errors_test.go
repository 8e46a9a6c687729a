package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
)

func TestAsAppError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want apperrors.Kind
	}{
		{"conflict", fmt.Errorf("commit: %w", ErrConflict), apperrors.KindConflict},
		{"duplicate", ErrDuplicate, apperrors.KindConflict},
		{"not found", ErrNotFound, apperrors.KindNotFound},
		{"unknown", errors.New("socket closed"), apperrors.KindInternal},
		{"already classified", apperrors.InsufficientStock("Bell", 1, 2), apperrors.KindInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.KindOf(AsAppError(tt.in)))
		})
	}
	assert.NoError(t, AsAppError(nil))
}
