package undo

import "crate/internal/faults"

// EntryFailure couples an entry that could not be reversed with why.
type EntryFailure struct {
	Entry  Entry
	Reason faults.Reason
	Err    error
}

// Report summarizes one undo invocation.
type Report struct {
	BatchID   string
	Mode      string
	Attempted int
	Succeeded int
	Failed    []EntryFailure
}

// Partial reports whether some entries failed while others went back.
func (r *Report) Partial() bool {
	return r.Succeeded > 0 && len(r.Failed) > 0
}
