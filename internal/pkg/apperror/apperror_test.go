package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorIs(t *testing.T) {
	sentinel := New(http.StatusConflict, "interval_conflict", "time slot already booked")
	other := New(http.StatusConflict, "invalid_state", "reservation is already cancelled")

	cause := errors.New("exclusion_violation")
	wrapped := sentinel.WithCause(cause)

	assert.True(t, errors.Is(wrapped, sentinel), "wrapped copy should match its sentinel")
	assert.True(t, errors.Is(wrapped, cause), "cause should stay reachable")
	assert.False(t, errors.Is(wrapped, other))
	assert.True(t, errors.Is(fmt.Errorf("create: %w", sentinel), sentinel))

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "interval_conflict", appErr.Kind)
	assert.Equal(t, "time slot already booked", appErr.Error())
}
