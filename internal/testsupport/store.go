package testsupport

import (
	"context"
	"testing"

	"pigeonhole/internal/config"
	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/runstore"
)

// MustOpenRunStore opens a runstore.Store for tests and registers cleanup.
func MustOpenRunStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenKnowledgeStore opens a knowledge.Store for tests and registers cleanup.
func MustOpenKnowledgeStore(t testing.TB, cfg *config.Config) *knowledge.Store {
	t.Helper()

	store, err := knowledge.Open(cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("knowledge.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedAssets inserts assets into a knowledge store, failing the test on error.
func SeedAssets(t testing.TB, store *knowledge.Store, assets ...knowledge.Asset) {
	t.Helper()

	for _, asset := range assets {
		if err := store.UpsertAsset(context.Background(), asset); err != nil {
			t.Fatalf("store.UpsertAsset(%s): %v", asset.ID, err)
		}
	}
}
