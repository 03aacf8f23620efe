package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	err := NewDomainError("TASK_EXISTS", "task already queued")
	assert.Equal(t, "task already queued", err.Error())
	assert.Equal(t, "TASK_EXISTS", err.Code)

	wrapped := fmt.Errorf("enqueue: %w", ErrNotFound)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrConflict)

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "NOT_FOUND", de.Code)
}

func TestDomainError_WithMessage(t *testing.T) {
	err := ErrNotFound.WithMessage("order 6920001 not found")
	assert.Equal(t, "order 6920001 not found", err.Error())
	assert.ErrorIs(t, fmt.Errorf("load: %w", err), ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Resource not found", ErrNotFound.Message)
}
