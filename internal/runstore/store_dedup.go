package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ClaimAttachment records the fingerprint if no prior run or concurrent
// worker holds it. Returns true when this caller won the claim; false means
// the attachment is a duplicate. The insert is atomic, so two workers racing
// on the same fingerprint resolve to exactly one claim.
func (s *Store) ClaimAttachment(ctx context.Context, mailboxID, fingerprint, runID, emailID, filename string) (bool, error) {
	if fingerprint == "" {
		return false, errors.New("fingerprint is empty")
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO processed_attachments (mailbox_id, fingerprint, run_id, email_id, filename, processed_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(mailbox_id, fingerprint) DO NOTHING`,
		mailboxID, fingerprint, runID, emailID, filename, formatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("claim attachment fingerprint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim attachment rows: %w", err)
	}
	return affected == 1, nil
}

// ReleaseAttachment drops a claim so a failed attachment can be retried on a
// later run.
func (s *Store) ReleaseAttachment(ctx context.Context, mailboxID, fingerprint string) error {
	_, err := s.execWithRetry(ctx,
		`DELETE FROM processed_attachments WHERE mailbox_id = ? AND fingerprint = ?`,
		mailboxID, fingerprint)
	if err != nil {
		return fmt.Errorf("release attachment fingerprint: %w", err)
	}
	return nil
}

// MarkProcessed records an attachment fingerprint in the dedup ledger.
// Upserts by (mailbox, fingerprint) so a forced reprocess simply refreshes the
// existing entry.
func (s *Store) MarkProcessed(ctx context.Context, mailboxID, fingerprint, runID, emailID, filename string) error {
	if fingerprint == "" {
		return errors.New("fingerprint is empty")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO processed_attachments (mailbox_id, fingerprint, run_id, email_id, filename, processed_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(mailbox_id, fingerprint) DO UPDATE SET
             run_id = excluded.run_id,
             email_id = excluded.email_id,
             filename = excluded.filename,
             processed_at = excluded.processed_at`,
		mailboxID, fingerprint, runID, emailID, filename, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record attachment fingerprint: %w", err)
	}
	return nil
}
