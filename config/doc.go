// Package config loads mcpgate settings from the environment.
//
// Load reads an optional .env file with github.com/joho/godotenv (variables
// already set in the process win), then every setting from the environment.
// Each raw value goes through a SecretResolver first: ${VAR} references are
// expanded strictly and secretref:<provider>:<ref> references are resolved
// with the env and file providers. The result is validated with
// github.com/go-playground/validator/v10; errors name the environment
// variable at fault.
package config
