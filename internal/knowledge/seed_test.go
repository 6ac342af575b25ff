package knowledge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pigeonhole/internal/knowledge"
)

const seedDoc = `
[[assets]]
id = "A1"
name = "Alpha Growth Fund"
type = "fund"
keywords = ["alpha", "agf"]
senders = ["reports@alphagrowth.example"]

[[assets]]
id = "B2"
name = "Beta Credit Partners"
type = "credit"
threshold = 0.75

[[categories]]
asset_type = "fund"
allowed = ["statement", "capital-call"]
fallback = "statement"

[[categories.patterns]]
category = "capital-call"
expression = "capital call"
base_confidence = 0.8
`

func writeSeed(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestApplySeed(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	seed, err := knowledge.LoadSeed(writeSeed(t, seedDoc))
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if err := store.ApplySeed(ctx, seed); err != nil {
		t.Fatalf("ApplySeed failed: %v", err)
	}

	assets, err := store.ListAssets(ctx)
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(assets) != 2 || assets[0].ID != "A1" || assets[1].Threshold != 0.75 {
		t.Fatalf("unexpected assets after seed: %+v", assets)
	}

	mapped, err := store.SenderAssets(ctx, "reports@alphagrowth.example")
	if err != nil {
		t.Fatalf("SenderAssets failed: %v", err)
	}
	if len(mapped) != 1 || mapped[0] != "A1" {
		t.Fatalf("expected sender mapping to A1, got %+v", mapped)
	}

	allowed, err := store.AllowedCategories(ctx, "fund")
	if err != nil {
		t.Fatalf("AllowedCategories failed: %v", err)
	}
	if len(allowed) != 2 {
		t.Fatalf("expected two allowed categories, got %+v", allowed)
	}
	fallback, err := store.FallbackCategory(ctx, "fund")
	if err != nil || fallback != "statement" {
		t.Fatalf("expected statement fallback, got %q err %v", fallback, err)
	}

	patterns, err := store.ClassificationPatterns(ctx, "capital-call", "fund")
	if err != nil {
		t.Fatalf("ClassificationPatterns failed: %v", err)
	}
	if len(patterns) != 1 || patterns[0].Expression != "capital call" {
		t.Fatalf("unexpected patterns: %+v", patterns)
	}
}

func TestApplySeedIsIdempotent(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	seed, err := knowledge.LoadSeed(writeSeed(t, seedDoc))
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.ApplySeed(ctx, seed); err != nil {
			t.Fatalf("ApplySeed pass %d failed: %v", i+1, err)
		}
	}
	assets, err := store.ListAssets(ctx)
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected seed to upsert, got %d assets", len(assets))
	}
}

func TestLoadSeedRejectsMissingID(t *testing.T) {
	_, err := knowledge.LoadSeed(writeSeed(t, "[[assets]]\nname = \"No ID\"\n"))
	if err == nil {
		t.Fatal("expected validation error for missing asset id")
	}
}
