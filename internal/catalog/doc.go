// Package catalog persists track records in SQLite. It is the only component
// with lifecycle-scoped mutable state; the reorganization engine reads track
// collections from it and writes back path and deletion updates.
package catalog
