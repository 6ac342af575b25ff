package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Mailbox contains configuration for the email source.
type Mailbox struct {
	// Dir is the maildir-style drop directory scanned for .eml files by the
	// filesystem connector. Real provider connectors ignore it.
	Dir string `toml:"dir"`
	// DefaultMailbox is the mailbox identifier used when a run does not name one.
	DefaultMailbox string `toml:"default_mailbox"`
}

// Matching contains thresholds for identification and classification.
type Matching struct {
	// IdentificationThreshold is the minimum confidence for filing an
	// attachment against an asset without human review.
	IdentificationThreshold float64 `toml:"identification_threshold"`
	// CategoryThreshold is the minimum confidence for a category match.
	CategoryThreshold float64 `toml:"category_threshold"`
	// ExactFuzzyThreshold promotes a fuzzy keyword hit to exact-equivalent scoring.
	ExactFuzzyThreshold float64 `toml:"exact_fuzzy_threshold"`
	// PartialThreshold is the minimum fuzzy similarity that counts as a match.
	PartialThreshold float64 `toml:"partial_threshold"`
	// ReviewConfidence is the fixed confidence reported on review-sentinel matches.
	ReviewConfidence float64 `toml:"review_confidence"`
	// FallbackCategoryConfidence is the fixed confidence for default-category fallbacks.
	FallbackCategoryConfidence float64 `toml:"fallback_category_confidence"`
}

// Processing contains batch sizing, concurrency bounds, and timeouts.
type Processing struct {
	// BatchSize is the number of emails per processing batch.
	BatchSize int `toml:"batch_size"`
	// EmailConcurrency bounds emails in flight within a batch.
	EmailConcurrency int `toml:"email_concurrency"`
	// AttachmentConcurrency bounds attachments in flight within one email.
	AttachmentConcurrency int `toml:"attachment_concurrency"`
	// AttachmentTimeout is the per-email attachment gather budget in seconds.
	AttachmentTimeout int `toml:"attachment_timeout"`
	// LookBackDays bounds how far back the connector lists emails.
	LookBackDays int `toml:"look_back_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Pigeonhole.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Mailbox: email source settings
//   - Matching: identification/classification thresholds
//   - Processing: batch sizing, concurrency bounds, timeouts
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Mailbox    Mailbox    `toml:"mailbox"`
	Matching   Matching   `toml:"matching"`
	Processing Processing `toml:"processing"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pigeonhole/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pigeonhole.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Mailbox.Dir) != "" {
		// Best-effort so config load survives an offline mail share.
		_ = os.MkdirAll(c.Mailbox.Dir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
