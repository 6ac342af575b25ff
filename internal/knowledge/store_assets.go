package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pigeonhole/internal/textmatch"
)

// SearchAssetProfiles returns assets whose name or keywords contain any of the
// supplied terms. Results are ordered by asset id for deterministic iteration.
func (s *Store) SearchAssetProfiles(ctx context.Context, terms []string) ([]Asset, error) {
	ctx = ensureContext(ctx)
	if len(terms) == 0 {
		return nil, nil
	}

	assets, err := s.ListAssets(ctx)
	if err != nil {
		return nil, err
	}

	folded := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		folded = append(folded, textmatch.Fold(term))
	}

	var matched []Asset
	for _, asset := range assets {
		haystack := textmatch.Fold(asset.Name + " " + strings.Join(asset.Keywords, " "))
		for _, term := range folded {
			if strings.Contains(haystack, term) {
				matched = append(matched, asset)
				break
			}
		}
	}
	return matched, nil
}

// ListAssets returns every known asset ordered by id.
func (s *Store) ListAssets(ctx context.Context) ([]Asset, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, asset_type, keywords_json, threshold FROM assets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var asset Asset
		var keywordsJSON string
		if err := rows.Scan(&asset.ID, &asset.Name, &asset.Type, &keywordsJSON, &asset.Threshold); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &asset.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for %s: %w", asset.ID, err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// GetAsset returns one asset by id, or nil when absent.
func (s *Store) GetAsset(ctx context.Context, id string) (*Asset, error) {
	ctx = ensureContext(ctx)
	var asset Asset
	var keywordsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, asset_type, keywords_json, threshold FROM assets WHERE id = ?", id).
		Scan(&asset.ID, &asset.Name, &asset.Type, &keywordsJSON, &asset.Threshold)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &asset.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords for %s: %w", asset.ID, err)
	}
	return &asset, nil
}

// SenderAssets returns asset ids mapped to the sender, nil when unmapped.
func (s *Store) SenderAssets(ctx context.Context, sender string) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT asset_id FROM sender_mappings WHERE sender = ? ORDER BY asset_id",
		strings.ToLower(strings.TrimSpace(sender)))
	if err != nil {
		return nil, fmt.Errorf("sender assets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sender mapping: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllowedCategories returns the categories permitted for an asset type, the
// fallback last.
func (s *Store) AllowedCategories(ctx context.Context, assetType string) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT category, is_fallback FROM allowed_categories WHERE asset_type = ?",
		assetType)
	if err != nil {
		return nil, fmt.Errorf("allowed categories: %w", err)
	}
	defer rows.Close()

	type entry struct {
		category string
		fallback bool
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.category, &e.fallback); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].fallback != entries[j].fallback {
			return !entries[i].fallback
		}
		return entries[i].category < entries[j].category
	})
	categories := make([]string, 0, len(entries))
	for _, e := range entries {
		categories = append(categories, e.category)
	}
	return categories, nil
}

// FallbackCategory returns the default category for an asset type, "" when the
// type has none.
func (s *Store) FallbackCategory(ctx context.Context, assetType string) (string, error) {
	ctx = ensureContext(ctx)
	var category string
	err := s.db.QueryRowContext(ctx,
		"SELECT category FROM allowed_categories WHERE asset_type = ? AND is_fallback = 1 LIMIT 1",
		assetType).Scan(&category)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fallback category: %w", err)
	}
	return category, nil
}

// UpsertAsset inserts or replaces an asset profile.
func (s *Store) UpsertAsset(ctx context.Context, asset Asset) error {
	if strings.TrimSpace(asset.ID) == "" {
		return fmt.Errorf("asset id required")
	}
	keywordsJSON, err := json.Marshal(asset.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	return s.execWithRetry(ensureContext(ctx),
		`INSERT INTO assets (id, name, asset_type, keywords_json, threshold)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             name = excluded.name,
             asset_type = excluded.asset_type,
             keywords_json = excluded.keywords_json,
             threshold = excluded.threshold`,
		asset.ID, asset.Name, asset.Type, string(keywordsJSON), asset.Threshold)
}

// SetAllowedCategories replaces the category list for an asset type. The
// fallback argument may be empty.
func (s *Store) SetAllowedCategories(ctx context.Context, assetType string, categories []string, fallback string) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin categories tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM allowed_categories WHERE asset_type = ?", assetType); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for _, category := range categories {
		isFallback := 0
		if category == fallback {
			isFallback = 1
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO allowed_categories (asset_type, category, is_fallback) VALUES (?, ?, ?)",
			assetType, category, isFallback); err != nil {
			return fmt.Errorf("insert category %s: %w", category, err)
		}
	}
	return tx.Commit()
}
