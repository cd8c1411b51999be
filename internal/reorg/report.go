package reorg

import "crate/internal/faults"

// EntryFailure couples a plan entry that could not be applied with why.
type EntryFailure struct {
	Entry  Entry         `json:"entry"`
	Reason faults.Reason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// Report summarizes one execution run. In simulate mode nothing was touched
// and BatchID is empty; otherwise BatchID names the sealed undo batch.
type Report struct {
	Mode      Mode           `json:"mode"`
	BatchID   string         `json:"batch_id,omitempty"`
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	NoOps     int            `json:"no_ops"`
	Conflicts int            `json:"conflicts"`
	Failed    []EntryFailure `json:"failed,omitempty"`
}

// Partial reports whether the run committed some entries but not all.
func (r *Report) Partial() bool {
	return r.Succeeded > 0 && (len(r.Failed) > 0 || r.Conflicts > 0)
}
