package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// MatchingRules returns the stored matching rules, or the built-in defaults
// when the store holds none.
func (s *Store) MatchingRules(ctx context.Context) ([]Rule, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, weight, base_confidence, pattern FROM rules WHERE kind = ? ORDER BY id",
		string(RuleMatching))
	if err != nil {
		return nil, fmt.Errorf("matching rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		var kind string
		if err := rows.Scan(&rule.ID, &kind, &rule.Weight, &rule.BaseConfidence, &rule.Pattern); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Kind = RuleKind(kind)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return DefaultMatchingRules(), nil
	}
	return rules, nil
}

// ClassificationPatterns returns the patterns for one category and asset type.
// Patterns registered without an asset type apply to every type.
func (s *Store) ClassificationPatterns(ctx context.Context, category, assetType string) ([]Pattern, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, expression, base_confidence FROM category_patterns
         WHERE category = ? AND asset_type IN (?, '')
         ORDER BY expression`,
		category, assetType)
	if err != nil {
		return nil, fmt.Errorf("classification patterns: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.Category, &p.Expression, &p.BaseConfidence); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// FileProcessingRules returns handling rules for a file extension.
func (s *Store) FileProcessingRules(ctx context.Context, fileExt string) ([]Rule, error) {
	ctx = ensureContext(ctx)
	fileExt = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileExt), "."))
	rows, err := s.db.QueryContext(ctx,
		"SELECT rule_id, kind, weight, base_confidence, pattern FROM file_rules WHERE file_ext = ? ORDER BY rule_id",
		fileExt)
	if err != nil {
		return nil, fmt.Errorf("file rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		var kind string
		if err := rows.Scan(&rule.ID, &kind, &rule.Weight, &rule.BaseConfidence, &rule.Pattern); err != nil {
			return nil, fmt.Errorf("scan file rule: %w", err)
		}
		rule.Kind = RuleKind(kind)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// UpsertRule inserts or replaces a matching/classification rule.
func (s *Store) UpsertRule(ctx context.Context, rule Rule) error {
	if strings.TrimSpace(rule.ID) == "" {
		return fmt.Errorf("rule id required")
	}
	return s.execWithRetry(ensureContext(ctx),
		`INSERT INTO rules (id, kind, weight, base_confidence, pattern)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             kind = excluded.kind,
             weight = excluded.weight,
             base_confidence = excluded.base_confidence,
             pattern = excluded.pattern`,
		rule.ID, string(rule.Kind), rule.Weight, rule.BaseConfidence, rule.Pattern)
}

// UpsertPattern inserts or replaces a classification pattern.
func (s *Store) UpsertPattern(ctx context.Context, assetType string, pattern Pattern) error {
	if strings.TrimSpace(pattern.Category) == "" || strings.TrimSpace(pattern.Expression) == "" {
		return fmt.Errorf("pattern category and expression required")
	}
	return s.execWithRetry(ensureContext(ctx),
		`INSERT INTO category_patterns (category, asset_type, expression, base_confidence)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (category, asset_type, expression) DO UPDATE SET
             base_confidence = excluded.base_confidence`,
		pattern.Category, assetType, pattern.Expression, pattern.BaseConfidence)
}
