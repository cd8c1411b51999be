// Package reorg plans and executes library reorganizations. Planning is
// pure: it maps every track's current path to a rendered target and
// classifies each entry without touching anything. Execution applies a plan
// under a run lock, isolates per-entry failures, and seals every committed
// operation into the undo log before reporting.
package reorg
