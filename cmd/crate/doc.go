// Command crate is the CLI for the crate music library organizer: scan the
// collection, preview and apply template-driven reorganizations, resolve
// duplicates, and undo executed batches.
package main
