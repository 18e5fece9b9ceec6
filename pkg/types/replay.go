package types

import "fmt"

// LogState tracks how far a transaction log progressed through the replay
// state machine.
type LogState int

const (
	// LogUnopened: the log file was absent or unreadable.
	LogUnopened LogState = iota
	// LogValidated: the log header parsed and its sequence chains to the
	// working image.
	LogValidated
	// LogSkipped: the log is stale, legacy-format, or unparsable. The
	// working image is unchanged by it.
	LogSkipped
	// LogReplaying: dirty pages are being applied. Transient.
	LogReplaying
	// LogPartiallyApplied: replay stopped mid-log at a record that failed
	// its checksum. Pages before the failure remain applied.
	LogPartiallyApplied
	// LogApplied: every dirty page applied and the working sequence
	// advanced to the log's ending sequence.
	LogApplied
)

func (s LogState) String() string {
	switch s {
	case LogUnopened:
		return "Unopened"
	case LogValidated:
		return "Validated"
	case LogSkipped:
		return "Skipped"
	case LogReplaying:
		return "Replaying"
	case LogPartiallyApplied:
		return "PartiallyApplied"
	case LogApplied:
		return "Applied"
	default:
		return fmt.Sprintf("LogState(%d)", int(s))
	}
}

// LogReport describes the outcome of one transaction log.
type LogReport struct {
	Path          string // "" for in-memory logs
	State         LogState
	StartSequence uint32
	EndSequence   uint32
	PagesApplied  int
	Reason        string // why the log was skipped or stopped, "" otherwise

	// Err classifies a skip or stop for errors.Is: ErrStaleLog when the
	// sequence did not chain, ErrLogChecksum when a dirty page failed its
	// checksum. Nil otherwise; replay itself never fails on these.
	Err error
}

// ReplayReport is the full outcome of bringing a base image up to date with
// its transaction logs. It is always surfaced to the caller: a skipped or
// partially applied log degrades the result, it does not fail the open.
type ReplayReport struct {
	Logs              []LogReport
	FinalPrimary      uint32
	FinalSecondary    uint32
	PagesApplied      int
	ChecksumRewritten bool // header checksum recomputed after replay
}

// Applied reports whether any log modified the image.
func (r *ReplayReport) Applied() bool {
	return r != nil && r.PagesApplied > 0
}

// LogApplier brings a base hive image to its most recent consistent state
// using up to two transaction logs, LOG1 then LOG2. The returned image is a
// private copy; base is never mutated. The report is returned even when err
// is nil and all logs were skipped.
type LogApplier interface {
	Apply(base []byte, logs ...[]byte) ([]byte, *ReplayReport, error)
}
