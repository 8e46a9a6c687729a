package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock("Hero Sprint", 2, 5)
	assert.Equal(t, "Insufficient stock for Hero Sprint. Available: 2, Required: 5", err.Error())
	assert.Equal(t, KindInsufficientStock, err.Kind)
}

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("Party not found")
	wrapped := fmt.Errorf("create invoice: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestConflictUnwrap(t *testing.T) {
	cause := errors.New("write conflict")
	err := Conflict(cause, "invoice was modified concurrently")
	assert.ErrorIs(t, err, cause)
}

func TestAborted(t *testing.T) {
	missing := NotFound("Item not found: 64b7")
	err := Aborted(missing)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "Item not found: 64b7", err.Error())
	assert.ErrorIs(t, err, missing)

	stock := InsufficientStock("Bell", 0, 1)
	assert.Same(t, stock, Aborted(stock))
}
