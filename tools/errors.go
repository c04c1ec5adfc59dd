package tools

import "errors"

var (
	// ErrToolNotFound is returned when no tool has the requested name.
	ErrToolNotFound = errors.New("tools: tool not found")

	// ErrResourceNotFound is returned when no resource or template matches a URI.
	ErrResourceNotFound = errors.New("tools: resource not found")

	// ErrPromptNotFound is returned when no prompt has the requested name.
	ErrPromptNotFound = errors.New("tools: prompt not found")

	// ErrInvalidArguments is returned when tool arguments do not decode onto
	// the tool's input type, or a required prompt argument is missing.
	ErrInvalidArguments = errors.New("tools: invalid arguments")

	// ErrDuplicate is returned when a name or URI is registered twice.
	ErrDuplicate = errors.New("tools: already registered")

	// ErrInvalidSchema is returned when a tool's input type does not infer
	// to a JSON object schema.
	ErrInvalidSchema = errors.New("tools: input schema must be an object")

	// ErrSamplingUnavailable is returned by sessions that cannot ask the
	// client to sample.
	ErrSamplingUnavailable = errors.New("tools: sampling unavailable")
)
