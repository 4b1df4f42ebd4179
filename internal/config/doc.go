// Package config handles configuration loading, parsing, and validation
// from environment variables (VOCAB_ prefix) and an optional YAML file.
// It provides type-safe access to server, database and auth settings while
// keeping configuration details separate from business logic.
package config
