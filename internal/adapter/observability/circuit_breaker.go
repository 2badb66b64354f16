package observability

import (
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreaker wraps sony/gobreaker for protecting outbound calls (Kafka
// publishes, future HTTP collaborators) whose return value the caller
// doesn't need, only the error.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker builds a circuit breaker named name that opens after
// maxFailures consecutive failures and stays open for timeout before
// allowing a half-open probe.
func NewCircuitBreaker(name string, maxFailures uint32, timeout time.Duration) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			RecordCircuitBreakerState(name, int(to))
		},
	}
	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Call executes fn through the circuit breaker, short-circuiting with
// gobreaker.ErrOpenState while the breaker is open.
func (c *CircuitBreaker) Call(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State returns the breaker's current state (0=closed, 1=half-open, 2=open).
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}
