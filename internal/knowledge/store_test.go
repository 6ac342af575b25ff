package knowledge_test

import (
	"context"
	"testing"
	"time"

	"pigeonhole/internal/knowledge"
)

func mustOpen(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertAndSearchAssets(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	assets := []knowledge.Asset{
		{ID: "A1", Name: "Alpha Growth Fund", Type: "fund", Keywords: []string{"alpha", "agf"}},
		{ID: "B2", Name: "Beta Credit Partners", Type: "credit", Keywords: []string{"beta"}},
	}
	for _, asset := range assets {
		if err := store.UpsertAsset(ctx, asset); err != nil {
			t.Fatalf("UpsertAsset failed: %v", err)
		}
	}

	found, err := store.SearchAssetProfiles(ctx, []string{"alpha"})
	if err != nil {
		t.Fatalf("SearchAssetProfiles failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != "A1" {
		t.Fatalf("unexpected search result: %+v", found)
	}
	if len(found[0].Keywords) != 2 {
		t.Fatalf("expected keywords round-trip, got %+v", found[0].Keywords)
	}

	all, err := store.ListAssets(ctx)
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "A1" || all[1].ID != "B2" {
		t.Fatalf("expected assets ordered by id, got %+v", all)
	}

	// Upsert overwrites.
	assets[0].Name = "Alpha Growth Fund II"
	if err := store.UpsertAsset(ctx, assets[0]); err != nil {
		t.Fatalf("UpsertAsset update failed: %v", err)
	}
	got, err := store.GetAsset(ctx, "A1")
	if err != nil || got == nil {
		t.Fatalf("GetAsset failed: %v %v", got, err)
	}
	if got.Name != "Alpha Growth Fund II" {
		t.Fatalf("expected updated name, got %q", got.Name)
	}
}

func TestSenderMappings(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	if err := store.UpsertAsset(ctx, knowledge.Asset{ID: "A1", Name: "Alpha"}); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	if err := store.UpsertSenderMapping(ctx, "IR@Alpha.com", "A1"); err != nil {
		t.Fatalf("UpsertSenderMapping failed: %v", err)
	}
	// Duplicate mapping is a no-op.
	if err := store.UpsertSenderMapping(ctx, "ir@alpha.com", "A1"); err != nil {
		t.Fatalf("duplicate UpsertSenderMapping failed: %v", err)
	}

	ids, err := store.SenderAssets(ctx, "ir@alpha.com")
	if err != nil {
		t.Fatalf("SenderAssets failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "A1" {
		t.Fatalf("unexpected sender assets: %v", ids)
	}

	none, err := store.SenderAssets(ctx, "unknown@example.com")
	if err != nil {
		t.Fatalf("SenderAssets failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no mappings, got %v", none)
	}
}

func TestMatchingRulesFallBackToDefaults(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	rules, err := store.MatchingRules(ctx)
	if err != nil {
		t.Fatalf("MatchingRules failed: %v", err)
	}
	if len(rules) != len(knowledge.DefaultMatchingRules()) {
		t.Fatalf("expected default rules, got %+v", rules)
	}

	custom := knowledge.Rule{ID: "name-match", Kind: knowledge.RuleMatching, Weight: 0.9, BaseConfidence: 0.95}
	if err := store.UpsertRule(ctx, custom); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	rules, err = store.MatchingRules(ctx)
	if err != nil {
		t.Fatalf("MatchingRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].Weight != 0.9 {
		t.Fatalf("expected stored rule to win, got %+v", rules)
	}
}

func TestCategoriesAndPatterns(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	categories := []string{"capital-call", "distribution", "correspondence"}
	if err := store.SetAllowedCategories(ctx, "fund", categories, "correspondence"); err != nil {
		t.Fatalf("SetAllowedCategories failed: %v", err)
	}

	allowed, err := store.AllowedCategories(ctx, "fund")
	if err != nil {
		t.Fatalf("AllowedCategories failed: %v", err)
	}
	if len(allowed) != 3 || allowed[len(allowed)-1] != "correspondence" {
		t.Fatalf("expected fallback last, got %v", allowed)
	}

	fallback, err := store.FallbackCategory(ctx, "fund")
	if err != nil || fallback != "correspondence" {
		t.Fatalf("unexpected fallback %q err %v", fallback, err)
	}
	if fb, err := store.FallbackCategory(ctx, "credit"); err != nil || fb != "" {
		t.Fatalf("expected no fallback for unknown type, got %q err %v", fb, err)
	}

	pattern := knowledge.Pattern{Category: "capital-call", Expression: `(?i)capital[ _-]?call`, BaseConfidence: 0.85}
	if err := store.UpsertPattern(ctx, "fund", pattern); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}
	patterns, err := store.ClassificationPatterns(ctx, "capital-call", "fund")
	if err != nil {
		t.Fatalf("ClassificationPatterns failed: %v", err)
	}
	if len(patterns) != 1 || patterns[0].Expression != pattern.Expression {
		t.Fatalf("unexpected patterns: %+v", patterns)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	outcome := knowledge.PastOutcome{
		Sender:     "IR@Alpha.com",
		AssetID:    "A1",
		Confidence: 0.82,
		DecidedAt:  time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Source:     "review",
	}
	if err := store.RecordOutcome(ctx, outcome); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}

	cases, err := store.SimilarCases(ctx, "ir@alpha.com", "A1")
	if err != nil {
		t.Fatalf("SimilarCases failed: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(cases))
	}
	if cases[0].Confidence != 0.82 || cases[0].Source != "review" {
		t.Fatalf("unexpected outcome %+v", cases[0])
	}
	if !cases[0].DecidedAt.Equal(outcome.DecidedAt) {
		t.Fatalf("expected timestamp round-trip, got %v", cases[0].DecidedAt)
	}
}
