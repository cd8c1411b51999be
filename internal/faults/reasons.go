package faults

// Reason is the typed cause attached to a per-entry execution or undo
// failure. Reasons are local to one entry; the batch always continues.
type Reason string

const (
	ReasonTargetExists     Reason = "TargetExists"
	ReasonSourceMissing    Reason = "SourceMissing"
	ReasonPermissionDenied Reason = "PermissionDenied"
	ReasonConflictOnUndo   Reason = "ConflictOnUndo"
	ReasonIOError          Reason = "IOError"
)
