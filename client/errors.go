package client

import "errors"

var (
	// ErrToolFailed is returned by CallText when the tool reports an error
	// result.
	ErrToolFailed = errors.New("client: tool returned an error")

	// ErrNoText is returned when a result carries no text content.
	ErrNoText = errors.New("client: result has no text content")
)
