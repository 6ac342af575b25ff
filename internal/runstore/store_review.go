package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddReviewItem inserts a pending review item. The caller assigns the id.
func (s *Store) AddReviewItem(ctx context.Context, item ReviewItem) error {
	if item.ID == "" {
		return errors.New("review item id is empty")
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO review_items (
            id, run_id, email_id, filename, sender, subject,
            suggested_asset_id, suggested_category, confidence, reasoning, status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.RunID, item.EmailID, item.Filename, item.Sender, item.Subject,
		item.SuggestedAssetID, item.SuggestedCategory, item.Confidence, item.Reasoning,
		ReviewPending, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	return nil
}

// GetReviewItem fetches one review item by id, or nil when absent.
func (s *Store) GetReviewItem(ctx context.Context, id string) (*ReviewItem, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM review_items WHERE id = ?`, id)
	item, err := scanReviewItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return item, nil
}

// PendingReviews lists unresolved review items, oldest first.
func (s *Store) PendingReviews(ctx context.Context) ([]ReviewItem, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM review_items WHERE status = ? ORDER BY created_at`, ReviewPending)
	if err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	defer rows.Close()

	var items []ReviewItem
	for rows.Next() {
		item, scanErr := scanReviewItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan review item: %w", scanErr)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ResolveReviewItem moves a pending item to completed with the reviewer's
// choices. Returns false when the item does not exist or was already resolved,
// so dispositions apply exactly once.
func (s *Store) ResolveReviewItem(ctx context.Context, id, assetID, category, notes string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE review_items SET status = ?, resolved_at = ?,
             resolved_asset_id = ?, resolved_category = ?, notes = ?
         WHERE id = ? AND status = ?`,
		ReviewCompleted, formatTime(time.Now()), assetID, category, notes, id, ReviewPending)
	if err != nil {
		return false, fmt.Errorf("resolve review item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve review rows: %w", err)
	}
	return affected == 1, nil
}

const reviewColumns = `id, run_id, email_id, filename, sender, subject,
    suggested_asset_id, suggested_category, confidence, reasoning, status,
    created_at, resolved_at, resolved_asset_id, resolved_category, notes`

func scanReviewItem(row rowScanner) (*ReviewItem, error) {
	var item ReviewItem
	var createdAt, resolvedAt string
	err := row.Scan(&item.ID, &item.RunID, &item.EmailID, &item.Filename, &item.Sender,
		&item.Subject, &item.SuggestedAssetID, &item.SuggestedCategory, &item.Confidence,
		&item.Reasoning, &item.Status, &createdAt, &resolvedAt, &item.ResolvedAssetID,
		&item.ResolvedCategory, &item.Notes)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = parseTime(createdAt)
	item.ResolvedAt = parseTime(resolvedAt)
	return &item, nil
}
