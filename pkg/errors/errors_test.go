package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrapsThroughWrapping(t *testing.T) {
	base := NewConflict("Slot Not Available", nil)
	wrapped := fmt.Errorf("booking: %w", base)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Slot Not Available", appErr.Message)
	assert.True(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(wrapped, ErrNotFound))
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("boom")))
	assert.False(t, Is(nil, ErrInternal))
}

func TestWithAddsFields(t *testing.T) {
	err := NewUnauthorized("Your account is pending approval", nil).
		With("pendingStatus", true).
		With("fin", "AB123")

	assert.Equal(t, true, err.Fields["pendingStatus"])
	assert.Equal(t, "AB123", err.Fields["fin"])
	assert.Equal(t, "auth_failure", err.Code.String())
}

func TestErrorIncludesCause(t *testing.T) {
	err := NewDependency("Failed to send reset email", fmt.Errorf("dial tcp: refused"))
	assert.Equal(t, "Failed to send reset email: dial tcp: refused", err.Error())
}
