package config

import "errors"

var (
	// ErrInvalidConfig is returned by Validate and Load for values that fail
	// validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrInvalidValue is returned when a variable cannot be parsed as its type.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("config: missing environment variables")

	// ErrUnknownSecretProvider is returned for a secretref with no provider.
	ErrUnknownSecretProvider = errors.New("config: unknown secret provider")

	// ErrSecretNotFound is returned when a provider has no value for a ref.
	ErrSecretNotFound = errors.New("config: secret not found")
)
