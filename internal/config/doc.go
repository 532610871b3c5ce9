// Package config loads, normalizes, and validates TOML configuration
// for the daemon and CLI.
package config
