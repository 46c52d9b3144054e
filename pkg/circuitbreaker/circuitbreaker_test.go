package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{
		Name:                "smtp",
		ConsecutiveFailures: 2,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
	}, nil)

	failing := errors.New("dial failed")
	calls := 0
	fn := func() error {
		calls++
		return failing
	}

	assert.ErrorIs(t, cb.Execute(fn), failing)
	assert.ErrorIs(t, cb.Execute(fn), failing)
	assert.Equal(t, "open", cb.State())

	err := cb.Execute(fn)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestBreakerPassesSuccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultSettings("stripe"), nil)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, "closed", cb.State())
}
