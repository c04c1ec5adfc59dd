package store

import (
	"context"
	"strings"
)

// MaxNameLength is the longest accepted counter name.
const MaxNameLength = 256

// DefaultCounter is the counter the built-in tools operate on.
const DefaultCounter = "counter"

// Counter is a set of named, non-negative integer counters.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use, and
//     concurrent increments must never lose an update.
//   - Context: methods honor cancellation and deadlines.
//   - Errors: Get on a missing counter returns 0 and no error. Increment
//     past math.MaxInt64 fails with ErrOverflow and leaves the value as is.
type Counter interface {
	// Get returns the current value of name.
	Get(ctx context.Context, name string) (int64, error)

	// Increment adds delta to name and returns the new value.
	// A negative delta is rejected with ErrNegativeDelta.
	Increment(ctx context.Context, name string, delta int64) (int64, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateName checks that name can be used as a counter name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "\r\n") {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func checkIncrement(name string, delta int64) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if delta < 0 {
		return ErrNegativeDelta
	}
	return nil
}
