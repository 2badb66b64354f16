package observability_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
)

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 3, 5*time.Second)

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Call_Success(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 2, 1*time.Second)

	err := cb.Call(func() error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Call_Failure(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 2, 1*time.Second)
	testErr := errors.New("test error")

	err := cb.Call(func() error {
		return testErr
	})

	assert.Equal(t, testErr, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 2, 100*time.Millisecond)

	err := cb.Call(func() error { return errors.New("failure 1") })
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	err = cb.Call(func() error { return errors.New("failure 2") })
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	err = cb.Call(func() error { return nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_HalfOpenRecoversToClosed(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 1, 50*time.Millisecond)

	err := cb.Call(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(75 * time.Millisecond)

	err = cb.Call(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 1, 50*time.Millisecond)

	_ = cb.Call(func() error { return errors.New("fail") })
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(75 * time.Millisecond)

	err := cb.Call(func() error { return errors.New("fail again") })
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := observability.NewCircuitBreaker("test", 5, 100*time.Millisecond)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			_ = cb.Call(func() error {
				if i%2 == 0 {
					return errors.New("random failure")
				}
				return nil
			})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	state := cb.State()
	assert.True(t, state == gobreaker.StateClosed ||
		state == gobreaker.StateOpen ||
		state == gobreaker.StateHalfOpen)
}
