package reorg

// Mode selects how a plan is carried out.
type Mode string

const (
	// ModeSimulate classifies every entry without touching the filesystem.
	ModeSimulate Mode = "simulate"
	ModeMove     Mode = "move"
	ModeCopy     Mode = "copy"
	ModeLink     Mode = "link"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(value string) (Mode, bool) {
	switch Mode(value) {
	case ModeSimulate, ModeMove, ModeCopy, ModeLink:
		return Mode(value), true
	case "":
		return ModeSimulate, true
	}
	return "", false
}

// Mutates reports whether the mode touches the filesystem.
func (m Mode) Mutates() bool {
	return m == ModeMove || m == ModeCopy || m == ModeLink
}

// Operation classifies a single plan entry.
type Operation string

const (
	OpNoop     Operation = "no-op"
	OpMove     Operation = "move"
	OpCopy     Operation = "copy"
	OpLink     Operation = "link"
	OpConflict Operation = "conflict"
)

// Entry is one row of a plan: where a file is, where it should go, and how
// it gets there.
type Entry struct {
	TrackID       int64     `json:"track_id"`
	Source        string    `json:"source"`
	Target        string    `json:"target,omitempty"`
	Op            Operation `json:"op"`
	Reason        string    `json:"reason,omitempty"`
	Disambiguated bool      `json:"disambiguated,omitempty"`
}

// Plan is the full proposed mapping for one reorganization run. It is the
// artifact shown to the user before confirmation and the sole input to the
// executor; nothing is mutated while a plan is built.
type Plan struct {
	Mode    Mode    `json:"mode"`
	Root    string  `json:"root"`
	Entries []Entry `json:"entries"`
}

// Counts summarizes a plan by operation.
type Counts struct {
	NoOps     int `json:"no_ops"`
	Changes   int `json:"changes"`
	Conflicts int `json:"conflicts"`
}

func (p *Plan) Counts() Counts {
	var c Counts
	for _, entry := range p.Entries {
		switch entry.Op {
		case OpNoop:
			c.NoOps++
		case OpConflict:
			c.Conflicts++
		default:
			c.Changes++
		}
	}
	return c
}

// HasChanges reports whether executing the plan would touch anything.
func (p *Plan) HasChanges() bool {
	return p.Counts().Changes > 0
}
