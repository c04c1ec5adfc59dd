package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls until ResetTimeout has passed.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the guarded dependency in errors and callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes allowed.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called, with the lock held, on every transition.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether an error counts against the circuit.
	// Default: every non-nil error that is not a caller cancellation.
	IsFailure func(err error) bool

	// Now overrides the clock.
	Now func() time.Time
}

// CircuitBreaker stops calling a dependency after repeated failures.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Execute runs op unless the circuit is open. A rejected call returns an
// error matching ErrCircuitOpen without invoking op.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := op(ctx)
	cb.release(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	return cb.state
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probes = 0
	cb.transitionLocked(StateClosed)
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advanceLocked()
	switch cb.state {
	case StateOpen:
		return cb.openError()
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			return cb.openError()
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)
	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openedAt = cb.config.Now()
			cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		if failed {
			cb.openedAt = cb.config.Now()
			cb.transitionLocked(StateOpen)
			return
		}
		cb.failures = 0
		cb.transitionLocked(StateClosed)
	}
}

// advanceLocked moves an open circuit to half-open once ResetTimeout passed.
func (cb *CircuitBreaker) advanceLocked() {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.probes = 0
		cb.transitionLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

func (cb *CircuitBreaker) openError() error {
	if cb.config.Name == "" {
		return ErrCircuitOpen
	}
	return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.config.Name)
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	return CircuitBreakerMetrics{
		Name:     cb.config.Name,
		State:    cb.state,
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
	}
}

// CircuitBreakerMetrics is a point-in-time view of a breaker.
type CircuitBreakerMetrics struct {
	Name     string
	State    State
	Failures int
	OpenedAt time.Time
}
