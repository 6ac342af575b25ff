package knowledge

import "context"

// RuleProvider supplies weighted matching and classification rules. The
// identification engine degrades to built-in defaults when the provider is nil
// or unavailable.
type RuleProvider interface {
	// MatchingRules returns the weighted rules applied during identification.
	MatchingRules(ctx context.Context) ([]Rule, error)
	// ClassificationPatterns returns patterns for one category and asset type.
	ClassificationPatterns(ctx context.Context, category, assetType string) ([]Pattern, error)
	// FileProcessingRules returns per-extension handling rules.
	FileProcessingRules(ctx context.Context, fileExt string) ([]Rule, error)
}

// Provider supplies asset profiles, sender mappings, and category facts.
type Provider interface {
	// SearchAssetProfiles returns assets whose name or keywords overlap the terms.
	SearchAssetProfiles(ctx context.Context, terms []string) ([]Asset, error)
	// ListAssets returns every known asset, used for fuzzy widening.
	ListAssets(ctx context.Context) ([]Asset, error)
	// SenderAssets returns asset ids mapped to the sender, or nil when unmapped.
	SenderAssets(ctx context.Context, sender string) ([]string, error)
	// AllowedCategories returns the categories permitted for an asset type.
	AllowedCategories(ctx context.Context, assetType string) ([]string, error)
	// FallbackCategory returns the default category for an asset type, or ""
	// when the type has no fallback.
	FallbackCategory(ctx context.Context, assetType string) (string, error)
}

// HistoryProvider supplies prior outcomes for sender/asset pairs.
type HistoryProvider interface {
	SimilarCases(ctx context.Context, sender, assetID string) ([]PastOutcome, error)
}

// FeedbackRecorder accepts learning signals from human review dispositions.
type FeedbackRecorder interface {
	UpsertSenderMapping(ctx context.Context, sender, assetID string) error
	RecordOutcome(ctx context.Context, outcome PastOutcome) error
}
