package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMailbox(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMailbox() error {
	var err error
	c.Mailbox.DefaultMailbox = strings.TrimSpace(c.Mailbox.DefaultMailbox)
	if c.Mailbox.DefaultMailbox == "" {
		c.Mailbox.DefaultMailbox = defaultMailboxID
	}
	if strings.TrimSpace(c.Mailbox.Dir) == "" {
		c.Mailbox.Dir = defaultMailboxDir
	}
	if c.Mailbox.Dir, err = expandPath(c.Mailbox.Dir); err != nil {
		return fmt.Errorf("mailbox.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.IdentificationThreshold == 0 {
		c.Matching.IdentificationThreshold = defaultIdentificationThreshold
	}
	if c.Matching.CategoryThreshold == 0 {
		c.Matching.CategoryThreshold = defaultCategoryThreshold
	}
	if c.Matching.ExactFuzzyThreshold == 0 {
		c.Matching.ExactFuzzyThreshold = defaultExactFuzzyThreshold
	}
	if c.Matching.PartialThreshold == 0 {
		c.Matching.PartialThreshold = defaultPartialThreshold
	}
	if c.Matching.ReviewConfidence == 0 {
		c.Matching.ReviewConfidence = defaultReviewConfidence
	}
	if c.Matching.FallbackCategoryConfidence == 0 {
		c.Matching.FallbackCategoryConfidence = defaultFallbackCategoryConfidence
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.BatchSize <= 0 {
		c.Processing.BatchSize = defaultBatchSize
	}
	if c.Processing.EmailConcurrency <= 0 {
		c.Processing.EmailConcurrency = defaultEmailConcurrency
	}
	if c.Processing.AttachmentConcurrency <= 0 {
		c.Processing.AttachmentConcurrency = defaultAttachmentConcurrency
	}
	if c.Processing.AttachmentTimeout <= 0 {
		c.Processing.AttachmentTimeout = defaultAttachmentTimeoutSeconds
	}
	if c.Processing.LookBackDays <= 0 {
		c.Processing.LookBackDays = defaultLookBackDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
