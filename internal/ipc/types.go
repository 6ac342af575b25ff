package ipc

// StopRequest asks the orchestrator to cancel the active run.
type StopRequest struct{}

// StopResponse reports whether a run was in flight when stop arrived. Stop is
// idempotent; stopping with nothing running is not an error.
type StopResponse struct {
	WasRunning bool `json:"was_running"`
}

// StatusRequest fetches orchestrator status.
type StatusRequest struct{}

// StatusResponse is a snapshot of the orchestrator.
type StatusResponse struct {
	Running   bool   `json:"running"`
	State     string `json:"state"`
	RunID     string `json:"run_id"`
	MailboxID string `json:"mailbox_id"`
	StartedAt string `json:"started_at"`
	PID       int    `json:"pid"`
}
