package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	unit := []struct {
		name  string
		value float64
	}{
		{"matching.identification_threshold", c.Matching.IdentificationThreshold},
		{"matching.category_threshold", c.Matching.CategoryThreshold},
		{"matching.exact_fuzzy_threshold", c.Matching.ExactFuzzyThreshold},
		{"matching.partial_threshold", c.Matching.PartialThreshold},
		{"matching.review_confidence", c.Matching.ReviewConfidence},
		{"matching.fallback_category_confidence", c.Matching.FallbackCategoryConfidence},
	}
	for _, field := range unit {
		if field.value < 0 || field.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", field.name)
		}
	}
	if c.Matching.PartialThreshold > c.Matching.ExactFuzzyThreshold {
		return errors.New("matching.partial_threshold must not exceed matching.exact_fuzzy_threshold")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.BatchSize < 1 {
		return errors.New("processing.batch_size must be at least 1")
	}
	if c.Processing.EmailConcurrency < 1 {
		return errors.New("processing.email_concurrency must be at least 1")
	}
	if c.Processing.AttachmentConcurrency < 1 {
		return errors.New("processing.attachment_concurrency must be at least 1")
	}
	if c.Processing.AttachmentTimeout < 1 {
		return errors.New("processing.attachment_timeout must be at least 1 second")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
