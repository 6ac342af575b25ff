package testsupport

import (
	"path/filepath"
	"testing"

	"pigeonhole/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Concurrency is pinned to 1 so tests stay deterministic unless they opt out.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Mailbox.Dir = filepath.Join(base, "mail")
	cfg.Processing.EmailConcurrency = 1
	cfg.Processing.AttachmentConcurrency = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("creating test directories: %v", err)
	}
	return &cfg
}

// WithProcessing overrides the processing knobs on the test config.
func WithProcessing(processing config.Processing) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing = processing
	}
}

// WithBatchSize sets the email batch size on the test config.
func WithBatchSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.BatchSize = size
	}
}
