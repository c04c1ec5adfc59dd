package store

import "errors"

var (
	// ErrNegativeDelta is returned by Increment for a delta below zero.
	ErrNegativeDelta = errors.New("store: negative delta")

	// ErrInvalidName is returned for an empty or multi-line counter name.
	ErrInvalidName = errors.New("store: counter name is invalid")

	// ErrNameTooLong is returned for a name longer than MaxNameLength.
	ErrNameTooLong = errors.New("store: counter name exceeds max length")

	// ErrOverflow is returned by Increment when the result would exceed
	// math.MaxInt64.
	ErrOverflow = errors.New("store: counter overflow")
)
