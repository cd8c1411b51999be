// Package layout compiles destination path templates and renders
// collision-ready relative paths from track metadata, applying per-segment
// filename sanitization and compilation-album detection.
package layout
