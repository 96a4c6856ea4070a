package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docufill/intake/pkg/errors"
)

func TestValidationError(t *testing.T) {
	err := errors.NewValidationError("confidence", 1.5, "must be between 0 and 1")

	assert.Contains(t, err.Error(), "confidence")
	assert.Contains(t, err.Error(), "must be between 0 and 1")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
	assert.True(t, errors.IsValidationError(err))
}

func TestValidationErrorWithoutField(t *testing.T) {
	err := errors.NewValidationError("", nil, "empty batch")
	assert.Equal(t, "validation failed: empty batch", err.Error())
}

func TestUnknownFieldError(t *testing.T) {
	err := errors.NewUnknownFieldError("favoriteColor")

	assert.Contains(t, err.Error(), "favoriteColor")
	assert.True(t, errors.IsUnknownField(err))
	// Unknown fields are a species of invalid input.
	assert.True(t, errors.IsValidationError(err))
}

func TestFrozenError(t *testing.T) {
	err := errors.NewFrozenError("move document")

	assert.Contains(t, err.Error(), "move document")
	assert.True(t, errors.IsFrozen(err))
	assert.False(t, errors.IsValidationError(err))
}

func TestNotFoundError(t *testing.T) {
	err := errors.NewNotFoundError("cluster", "c-42")

	assert.Equal(t, "cluster with ID c-42 not found", err.Error())
	assert.True(t, errors.IsNotFound(err))
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, errors.WrapValidation("x", nil))
	assert.NoError(t, errors.WrapIO("read", "/tmp/x", nil))
	assert.NoError(t, errors.WrapParse("yaml", "batch.yaml", nil))

	wrapped := errors.WrapValidation("value", stderrors.New("bad date"))
	assert.True(t, errors.IsValidationError(wrapped))

	ioErr := errors.WrapIO("read", "batch.yaml", stderrors.New("boom"))
	assert.Contains(t, ioErr.Error(), "batch.yaml")

	parseErr := errors.WrapParse("yaml", "form.yaml", stderrors.New("bad indent"))
	assert.Contains(t, parseErr.Error(), "form.yaml")
}

func TestConfigErrorUnwrap(t *testing.T) {
	inner := stderrors.New("missing key")
	err := errors.NewConfigError("reconcile", "weights", inner)

	assert.Contains(t, err.Error(), "reconcile")
	assert.Equal(t, inner, stderrors.Unwrap(err))
}
