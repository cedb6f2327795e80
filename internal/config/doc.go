// Package config handles configuration loading, parsing, and validation
// from environment variables (prefixed with CADENCE_) and an optional YAML
// file. It keeps configuration details separate from business logic.
package config
