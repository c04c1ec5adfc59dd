package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Name identifies the bounded operation in errors.
	Name string

	// Timeout is the maximum duration for the operation.
	// Default: 5 seconds
	Timeout time.Duration
}

// Timeout bounds operations by a deadline.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Timeout{config: config}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// Execute runs op with the deadline applied.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Call(ctx, t, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Call runs op with t's deadline and returns its value.
//
// Call returns as soon as the deadline passes even if op ignores its
// context. Expiry of t's own deadline yields an error matching ErrTimeout;
// cancellation of the caller's context is returned unchanged.
func Call[T any](ctx context.Context, t *Timeout, op func(context.Context) (T, error)) (T, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && parent.Err() == nil && errors.Is(r.err, context.DeadlineExceeded) {
			r.err = t.expired(r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if err := parent.Err(); err != nil {
			return zero, err
		}
		return zero, t.expired(ctx.Err())
	}
}

func (t *Timeout) expired(cause error) error {
	name := t.config.Name
	if name == "" {
		name = "operation"
	}
	return fmt.Errorf("%w: %s after %s: %w", ErrTimeout, name, t.config.Timeout, cause)
}
