package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, runID, mailboxID string) error {
	if runID == "" {
		return errors.New("run id is empty")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (run_id, mailbox_id, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, mailboxID, StatusRunning, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SaveEmailDetail upserts the per-email outcome for a run.
func (s *Store) SaveEmailDetail(ctx context.Context, runID string, detail EmailDetail) error {
	needsReview := detail.NeedsReview
	if needsReview == nil {
		needsReview = []string{}
	}
	reviewJSON, err := json.Marshal(needsReview)
	if err != nil {
		return fmt.Errorf("marshal needs-review list: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO run_emails (run_id, email_id, attachments_processed, attachments_classified,
             attachments_skipped, quarantined, needs_review_json, errors)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, email_id) DO UPDATE SET
             attachments_processed = excluded.attachments_processed,
             attachments_classified = excluded.attachments_classified,
             attachments_skipped = excluded.attachments_skipped,
             quarantined = excluded.quarantined,
             needs_review_json = excluded.needs_review_json,
             errors = excluded.errors`,
		runID, detail.EmailID, detail.AttachmentsProcessed, detail.AttachmentsClassified,
		detail.AttachmentsSkipped, detail.Quarantined, string(reviewJSON), detail.Errors)
	if err != nil {
		return fmt.Errorf("save email detail: %w", err)
	}
	return nil
}

// FinishRun records the terminal status and aggregate counts for a run.
func (s *Store) FinishRun(ctx context.Context, result *RunResult) error {
	if result == nil {
		return errors.New("result is nil")
	}
	if !result.Status.Terminal() {
		return fmt.Errorf("finish run: %q is not a terminal status", result.Status)
	}
	now := time.Now()
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, emails_found = ?,
             emails_processed = ?, emails_skipped = ?, errors = ?, quarantined = ?
         WHERE run_id = ?`,
		result.Status, formatTime(now), result.EmailsFound,
		result.EmailsProcessed, result.EmailsSkipped, result.Errors,
		result.Quarantined, result.RunID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: run %s not found", result.RunID)
	}
	result.FinishedAt = now
	return nil
}

// GetRun fetches one run with its per-email details. Returns nil when no run
// with that id exists.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunResult, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, mailbox_id, status, started_at, finished_at,
                emails_found, emails_processed, emails_skipped, errors, quarantined
         FROM runs WHERE run_id = ?`, runID)

	result, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	details, err := s.emailDetails(ctx, runID)
	if err != nil {
		return nil, err
	}
	result.Details = details
	return result, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunResult, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, mailbox_id, status, started_at, finished_at,
                emails_found, emails_processed, emails_skipped, errors, quarantined
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var results []RunResult
	for rows.Next() {
		result, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan run: %w", scanErr)
		}
		results = append(results, *result)
	}
	return results, rows.Err()
}

// ActiveRun returns the most recent run still in the running state, or nil.
func (s *Store) ActiveRun(ctx context.Context) (*RunResult, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, mailbox_id, status, started_at, finished_at,
                emails_found, emails_processed, emails_skipped, errors, quarantined
         FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`, StatusRunning)
	result, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active run: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunResult, error) {
	var result RunResult
	var startedAt, finishedAt string
	err := row.Scan(&result.RunID, &result.MailboxID, &result.Status, &startedAt, &finishedAt,
		&result.EmailsFound, &result.EmailsProcessed, &result.EmailsSkipped,
		&result.Errors, &result.Quarantined)
	if err != nil {
		return nil, err
	}
	result.StartedAt = parseTime(startedAt)
	result.FinishedAt = parseTime(finishedAt)
	return &result, nil
}

func (s *Store) emailDetails(ctx context.Context, runID string) ([]EmailDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email_id, attachments_processed, attachments_classified,
                attachments_skipped, quarantined, needs_review_json, errors
         FROM run_emails WHERE run_id = ? ORDER BY email_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list email details: %w", err)
	}
	defer rows.Close()

	var details []EmailDetail
	for rows.Next() {
		var detail EmailDetail
		var reviewJSON string
		if err := rows.Scan(&detail.EmailID, &detail.AttachmentsProcessed,
			&detail.AttachmentsClassified, &detail.AttachmentsSkipped,
			&detail.Quarantined, &reviewJSON, &detail.Errors); err != nil {
			return nil, fmt.Errorf("scan email detail: %w", err)
		}
		if err := json.Unmarshal([]byte(reviewJSON), &detail.NeedsReview); err != nil {
			return nil, fmt.Errorf("decode needs-review list: %w", err)
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}
