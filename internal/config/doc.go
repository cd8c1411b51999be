// Package config loads, normalizes, and validates crate's TOML configuration.
package config
