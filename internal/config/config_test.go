package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pigeonhole/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME override is not effective on windows")
	}
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "pigeonhole")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Mailbox.DefaultMailbox != "inbox" {
		t.Fatalf("unexpected default mailbox: %q", cfg.Mailbox.DefaultMailbox)
	}
	if cfg.Matching.IdentificationThreshold != 0.6 {
		t.Fatalf("unexpected identification threshold: %v", cfg.Matching.IdentificationThreshold)
	}
	if cfg.Processing.EmailConcurrency != 4 || cfg.Processing.AttachmentConcurrency != 2 {
		t.Fatalf("unexpected concurrency defaults: %+v", cfg.Processing)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"",
		"[matching]",
		"identification_threshold = 0.75",
		"",
		"[processing]",
		"batch_size = 3",
		"email_concurrency = 2",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be loaded, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Matching.IdentificationThreshold != 0.75 {
		t.Fatalf("unexpected threshold: %v", cfg.Matching.IdentificationThreshold)
	}
	if cfg.Processing.BatchSize != 3 || cfg.Processing.EmailConcurrency != 2 {
		t.Fatalf("unexpected processing settings: %+v", cfg.Processing)
	}
	// Unset values fall back to defaults.
	if cfg.Processing.AttachmentConcurrency != 2 {
		t.Fatalf("expected default attachment concurrency, got %d", cfg.Processing.AttachmentConcurrency)
	}
}

func TestValidateRejectsOutOfRangeThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Matching.IdentificationThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for threshold above 1")
	}

	cfg = config.Default()
	cfg.Matching.PartialThreshold = 0.95
	cfg.Matching.ExactFuzzyThreshold = 0.9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when partial exceeds exact-fuzzy threshold")
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported log format")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[matching]") {
		t.Fatalf("expected sample to mention matching section, got %q", string(data))
	}
}
