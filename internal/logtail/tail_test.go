package logtail_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pigeonhole/internal/logtail"
)

func TestLastLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pigeonhole.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logtail.LastLines(path, 2)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset == 0 {
		t.Fatal("expected offset to advance")
	}
}

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := logtail.LastLines(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v at %d", lines, offset)
	}
}

func TestReadFromReturnsOnlyAppended(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pigeonhole.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	_, offset, err := logtail.LastLines(path, 1)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	lines, newOffset, err := logtail.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("read from offset: %v", err)
	}
	if len(lines) != 1 || lines[0] != "later" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if newOffset <= offset {
		t.Fatalf("expected offset to advance past %d, got %d", offset, newOffset)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pigeonhole.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	_, offset, err := logtail.LastLines(path, 1)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = logtail.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			select {
			case got <- line:
			default:
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case line := <-got:
		if line != "later" {
			t.Fatalf("unexpected line: %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not emit appended line")
	}
	cancel()
	<-done
}
