package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/services"
	"pigeonhole/internal/textmatch"
)

const (
	// Patterns longer than this are considered specific enough to earn a boost.
	longPatternLen   = 20
	longPatternBoost = 0.05
	// Word-boundary anchors mean the provider authored the pattern carefully.
	boundaryBoost = 0.05
)

// Config carries the classification thresholds.
type Config struct {
	// Threshold is the minimum confidence for a pattern-based category match.
	Threshold float64
	// FallbackConfidence is assigned when no pattern clears the threshold but
	// the asset type declares a fallback category. The fallback bypasses the
	// threshold so documents are filed somewhere rather than left dangling.
	FallbackConfidence float64
}

// Engine scores document categories for an attachment given its asset type.
// Allowed categories and their patterns come from the providers; the engine
// holds only the scoring algorithm.
type Engine struct {
	cfg       Config
	logger    *slog.Logger
	knowledge knowledge.Provider
	rules     knowledge.RuleProvider
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithKnowledgeProvider supplies the allowed-category source.
func WithKnowledgeProvider(p knowledge.Provider) Option {
	return func(e *Engine) { e.knowledge = p }
}

// WithRuleProvider supplies the category-pattern source.
func WithRuleProvider(p knowledge.RuleProvider) Option {
	return func(e *Engine) { e.rules = p }
}

// NewEngine builds a classification engine. A nil logger is replaced with a
// no-op logger.
func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	engine := &Engine{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Classify determines the document category for an attachment. The filename
// is evaluated first; subject and body text are consulted only when no
// filename pattern matches. Returns (nil, nil) when no category can be
// assigned and no fallback exists.
func (e *Engine) Classify(ctx context.Context, attachment mailbox.Attachment, email mailbox.EmailContext, assetType string) (*CategoryMatch, error) {
	if strings.TrimSpace(attachment.Filename) == "" && strings.TrimSpace(email.Subject+email.BodyExcerpt) == "" {
		return nil, services.Wrap(services.ErrValidation, "classify", "classify",
			"attachment and email carry no classifiable text", nil)
	}

	categories := e.allowedCategories(ctx, assetType)
	if len(categories) == 0 {
		e.logger.Debug("no allowed categories for asset type",
			logging.String("asset_type", assetType))
		return e.fallbackMatch(ctx, assetType), nil
	}
	sort.Strings(categories)

	filename := textmatch.Fold(attachment.Filename)
	content := textmatch.Fold(strings.TrimSpace(email.Subject + " " + email.BodyExcerpt))

	best := e.bestAcross(ctx, categories, assetType, filename, SourceFilename)
	if best == nil {
		best = e.bestAcross(ctx, categories, assetType, content, SourceContent)
	}
	if best != nil && best.Confidence >= e.cfg.Threshold {
		e.logger.Debug("classified attachment",
			logging.String(logging.FieldAttachment, attachment.Filename),
			logging.String("category", best.Category),
			logging.Float64(logging.FieldConfidence, best.Confidence))
		return best, nil
	}
	return e.fallbackMatch(ctx, assetType), nil
}

// bestAcross evaluates every category's patterns against one text and keeps
// the highest-confidence hit. Ties go to the lexicographically smaller
// category so classification stays deterministic.
func (e *Engine) bestAcross(ctx context.Context, categories []string, assetType, text, source string) *CategoryMatch {
	if text == "" {
		return nil
	}
	var best *CategoryMatch
	for _, category := range categories {
		patterns := e.categoryPatterns(ctx, category, assetType)
		for _, pattern := range patterns {
			confidence, ok := scorePattern(pattern, text)
			if !ok {
				continue
			}
			if best == nil || confidence > best.Confidence {
				best = &CategoryMatch{
					Category:   category,
					Confidence: confidence,
					Pattern:    pattern.Expression,
					Source:     source,
				}
			}
		}
	}
	return best
}

// scorePattern matches one provider pattern against folded text and returns
// its adjusted confidence. Expressions that fail to compile as regular
// expressions are retried as literal substrings.
func scorePattern(pattern knowledge.Pattern, text string) (float64, bool) {
	expr := strings.TrimSpace(pattern.Expression)
	if expr == "" {
		return 0, false
	}

	matched := false
	if re, err := regexp.Compile("(?i)" + expr); err == nil {
		matched = re.MatchString(text)
	} else {
		matched = strings.Contains(text, textmatch.Fold(expr))
	}
	if !matched {
		return 0, false
	}

	confidence := pattern.BaseConfidence
	if len(expr) > longPatternLen {
		confidence += longPatternBoost
	}
	if strings.Contains(expr, `\b`) {
		confidence += boundaryBoost
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence, true
}

func (e *Engine) allowedCategories(ctx context.Context, assetType string) []string {
	if e.knowledge == nil {
		return nil
	}
	categories, err := e.knowledge.AllowedCategories(ctx, assetType)
	if err != nil {
		e.logger.Warn("allowed-category lookup failed, classifying without categories",
			logging.String("asset_type", assetType), logging.Error(err))
		return nil
	}
	return categories
}

func (e *Engine) categoryPatterns(ctx context.Context, category, assetType string) []knowledge.Pattern {
	if e.rules == nil {
		return nil
	}
	patterns, err := e.rules.ClassificationPatterns(ctx, category, assetType)
	if err != nil {
		e.logger.Warn("pattern lookup failed, skipping category",
			logging.String("category", category), logging.Error(err))
		return nil
	}
	return patterns
}

// fallbackMatch returns the asset type's fallback category at a fixed low
// confidence, or nil when none is configured.
func (e *Engine) fallbackMatch(ctx context.Context, assetType string) *CategoryMatch {
	if e.knowledge == nil {
		return nil
	}
	fallback, err := e.knowledge.FallbackCategory(ctx, assetType)
	if err != nil {
		e.logger.Warn("fallback-category lookup failed",
			logging.String("asset_type", assetType), logging.Error(err))
		return nil
	}
	if fallback == "" {
		return nil
	}
	return &CategoryMatch{
		Category:   fallback,
		Confidence: e.cfg.FallbackConfidence,
		Pattern:    fmt.Sprintf("fallback for %s", assetType),
		Source:     SourceFallback,
	}
}
