package store

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// MemoryCounter keeps counters in process memory.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounter creates an empty in-memory counter set.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]int64)}
}

// Get returns the current value of name, or 0.
func (c *MemoryCounter) Get(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("store: get %q: %w", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name], nil
}

// Increment adds delta to name.
func (c *MemoryCounter) Increment(ctx context.Context, name string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkIncrement(name, delta); err != nil {
		return 0, fmt.Errorf("store: increment %q: %w", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if delta > math.MaxInt64-c.values[name] {
		return 0, fmt.Errorf("store: increment %q: %w", name, ErrOverflow)
	}
	c.values[name] += delta
	return c.values[name], nil
}

// Ping always succeeds.
func (c *MemoryCounter) Ping(ctx context.Context) error {
	return ctx.Err()
}

var (
	_ Counter = (*MemoryCounter)(nil)
	_ Pinger  = (*MemoryCounter)(nil)
)
