package pipeline

import "time"

// State is the orchestrator lifecycle. A new orchestrator starts Idle; Run
// moves it to Running and leaves it in one of the terminal states, from which
// a fresh Run may start again.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// RunRequest describes one mailbox processing run.
type RunRequest struct {
	MailboxID string
	// LookBack bounds how far back emails are listed. Zero means the
	// configured default.
	LookBack time.Duration
	// ForceReprocess bypasses the duplicate-attachment ledger.
	ForceReprocess bool
}

// Status is a point-in-time snapshot of the orchestrator, served over the
// control socket while a run is in flight.
type Status struct {
	State     State
	RunID     string
	MailboxID string
	StartedAt time.Time
}
