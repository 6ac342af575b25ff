package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SimilarCases returns prior outcomes for a sender/asset pair, newest first.
func (s *Store) SimilarCases(ctx context.Context, sender, assetID string) ([]PastOutcome, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT sender, asset_id, confidence, decided_at, source FROM history
         WHERE sender = ? AND asset_id = ?
         ORDER BY decided_at DESC`,
		strings.ToLower(strings.TrimSpace(sender)), assetID)
	if err != nil {
		return nil, fmt.Errorf("similar cases: %w", err)
	}
	defer rows.Close()

	var outcomes []PastOutcome
	for rows.Next() {
		var outcome PastOutcome
		var decidedAt string
		if err := rows.Scan(&outcome.Sender, &outcome.AssetID, &outcome.Confidence, &decidedAt, &outcome.Source); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, decidedAt); err == nil {
			outcome.DecidedAt = ts
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

// RecordOutcome appends a filing outcome for future-run adjustment.
func (s *Store) RecordOutcome(ctx context.Context, outcome PastOutcome) error {
	if strings.TrimSpace(outcome.Sender) == "" || strings.TrimSpace(outcome.AssetID) == "" {
		return fmt.Errorf("outcome sender and asset id required")
	}
	decidedAt := outcome.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}
	source := outcome.Source
	if source == "" {
		source = "auto"
	}
	return s.execWithRetry(ensureContext(ctx),
		"INSERT INTO history (sender, asset_id, confidence, decided_at, source) VALUES (?, ?, ?, ?, ?)",
		strings.ToLower(strings.TrimSpace(outcome.Sender)),
		outcome.AssetID,
		outcome.Confidence,
		decidedAt.Format(time.RFC3339Nano),
		source)
}

// UpsertSenderMapping associates a sender with an asset. Existing mappings are
// left in place; a sender may map to several assets.
func (s *Store) UpsertSenderMapping(ctx context.Context, sender, assetID string) error {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" || strings.TrimSpace(assetID) == "" {
		return fmt.Errorf("sender and asset id required")
	}
	return s.execWithRetry(ensureContext(ctx),
		`INSERT INTO sender_mappings (sender, asset_id, created_at)
         VALUES (?, ?, ?)
         ON CONFLICT (sender, asset_id) DO NOTHING`,
		sender, assetID, time.Now().UTC().Format(time.RFC3339Nano))
}
