package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pigeonhole/internal/logging"
	"pigeonhole/internal/services"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hello", logging.String("key", "value"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"key":"value"`) {
		t.Fatalf("expected structured field in output, got %q", string(data))
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-42")
	ctx = services.WithEmailID(ctx, "email-7")
	logging.WithContext(ctx, logger).Info("scoped")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "run-42") || !strings.Contains(out, "email-7") {
		t.Fatalf("expected context fields in output, got %q", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("should not panic")
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("nop logger should report disabled")
	}
}
