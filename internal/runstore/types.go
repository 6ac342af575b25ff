package runstore

import "time"

// RunStatus captures the lifecycle of a processing run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether a run in this status can no longer change.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// EmailDetail records the per-email outcome inside a run. Skipped counts
// duplicate attachments, quarantined counts security rejections; neither is an
// error.
type EmailDetail struct {
	EmailID               string
	AttachmentsProcessed  int
	AttachmentsClassified int
	AttachmentsSkipped    int
	Quarantined           int
	NeedsReview           []string
	Errors                int
}

// RunResult is the persisted, reportable shape of one processing run.
type RunResult struct {
	RunID           string
	MailboxID       string
	Status          RunStatus
	StartedAt       time.Time
	FinishedAt      time.Time
	EmailsFound     int
	EmailsProcessed int
	EmailsSkipped   int
	Errors          int
	Quarantined     int
	Details         []EmailDetail
}

// ReviewStatus tracks whether a human has resolved a review item.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewCompleted ReviewStatus = "completed"
)

// ReviewItem is one attachment awaiting (or resolved by) human review.
type ReviewItem struct {
	ID                string
	RunID             string
	EmailID           string
	Filename          string
	Sender            string
	Subject           string
	SuggestedAssetID  string
	SuggestedCategory string
	Confidence        float64
	// Reasoning is the engine's trace, so the reviewer sees why the
	// suggestion fell short.
	Reasoning string
	Status    ReviewStatus
	CreatedAt         time.Time
	ResolvedAt        time.Time
	ResolvedAssetID   string
	ResolvedCategory  string
	Notes             string
}
