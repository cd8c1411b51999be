// Package logging wraps log/slog with crate's console and JSON handlers,
// typed attribute helpers, and context-derived fields for track and batch
// identifiers.
package logging
