package identify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/services"
	"pigeonhole/internal/textmatch"
)

// Config carries the engine thresholds.
type Config struct {
	// Threshold is the minimum confidence to file without review. Per-asset
	// thresholds override it when set.
	Threshold float64
	// ReviewConfidence is the fixed confidence reported on sentinel matches.
	ReviewConfidence float64
	// Match holds the fuzzy matcher thresholds.
	Match textmatch.Config
}

// Engine scores known assets against one attachment's context. All providers
// are optional: a missing rule provider degrades to built-in defaults and
// missing knowledge/history providers degrade to empty candidate sets and no
// adjustment.
type Engine struct {
	cfg     Config
	rules   knowledge.RuleProvider
	know    knowledge.Provider
	history knowledge.HistoryProvider
	logger  *slog.Logger
}

// Option customises the Engine.
type Option func(*Engine)

// WithRuleProvider injects a rule source.
func WithRuleProvider(p knowledge.RuleProvider) Option {
	return func(e *Engine) { e.rules = p }
}

// WithKnowledgeProvider injects an asset/sender/category source.
func WithKnowledgeProvider(p knowledge.Provider) Option {
	return func(e *Engine) { e.know = p }
}

// WithHistoryProvider injects a prior-outcome source.
func WithHistoryProvider(p knowledge.HistoryProvider) Option {
	return func(e *Engine) { e.history = p }
}

// NewEngine constructs an identification engine.
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

// Identify returns exactly one AssetMatch for the attachment: the single best
// candidate at or above threshold, or the review sentinel. It only errors on
// malformed input, never on provider absence.
func (e *Engine) Identify(ctx context.Context, att mailbox.Attachment, email mailbox.EmailContext, knownAssets []knowledge.Asset) (AssetMatch, error) {
	if strings.TrimSpace(att.Filename) == "" {
		return AssetMatch{}, services.Wrap(services.ErrValidation, "identify", "validate input", "attachment filename empty", nil)
	}
	if strings.TrimSpace(email.Sender) == "" && strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.BodyExcerpt) == "" {
		return AssetMatch{}, services.Wrap(services.ErrValidation, "identify", "validate input", "email context empty", nil)
	}

	logger := logging.WithContext(ctx, e.logger)

	rules := e.matchingRules(ctx, logger)
	senderAssets := e.senderAssets(ctx, email.Sender)
	candidates := e.gatherCandidates(ctx, logger, att, email, knownAssets, senderAssets)
	if len(candidates) == 0 {
		logger.Info("no candidate assets for attachment",
			logging.String(logging.FieldAttachment, att.Filename))
		return e.reviewMatch(att), nil
	}

	combined := combinedText(att, email)
	scores := make([]CandidateScore, 0, len(candidates))
	for _, asset := range candidates {
		score := e.scoreCandidate(asset, combined, senderAssets, rules)
		score.Confidence = e.adjustFromHistory(ctx, logger, email.Sender, asset.ID, score.Confidence, &score)
		scores = append(scores, score)
	}

	// Deterministic tie-break: equal scores resolve to the lexicographically
	// smallest asset id.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Confidence != scores[j].Confidence {
			return scores[i].Confidence > scores[j].Confidence
		}
		return scores[i].Asset.ID < scores[j].Asset.ID
	})

	best := scores[0]
	threshold := e.cfg.Threshold
	if best.Asset.Threshold > 0 {
		threshold = best.Asset.Threshold
	}

	logger.Debug("identification scoring complete",
		logging.String(logging.FieldAttachment, att.Filename),
		logging.Int("candidates", len(scores)),
		logging.String("best_asset", best.Asset.ID),
		logging.Float64("best_confidence", best.Confidence),
		logging.Float64("threshold", threshold))

	if best.Confidence < threshold {
		logger.Info("no candidate cleared identification threshold",
			logging.String(logging.FieldAttachment, att.Filename),
			logging.Float64("best_confidence", best.Confidence),
			logging.Float64("threshold", threshold))
		return e.reviewMatch(att), nil
	}

	return AssetMatch{
		Filename:   att.Filename,
		AssetID:    best.Asset.ID,
		AssetName:  best.Asset.Name,
		AssetType:  best.Asset.Type,
		Confidence: clamp(best.Confidence),
		Reasoning:  reasoningTrace(best),
	}, nil
}

func (e *Engine) reviewMatch(att mailbox.Attachment) AssetMatch {
	return AssetMatch{
		Filename:   att.Filename,
		AssetID:    ReviewSentinel,
		Confidence: e.cfg.ReviewConfidence,
		Reasoning:  []string{"no candidate asset met the identification threshold"},
	}
}

func (e *Engine) matchingRules(ctx context.Context, logger *slog.Logger) []knowledge.Rule {
	if e.rules == nil {
		return knowledge.DefaultMatchingRules()
	}
	rules, err := e.rules.MatchingRules(ctx)
	if err != nil || len(rules) == 0 {
		if err != nil {
			logger.Warn("rule provider unavailable, using default rules", logging.Error(err))
		}
		return knowledge.DefaultMatchingRules()
	}
	return rules
}

func (e *Engine) senderAssets(ctx context.Context, sender string) map[string]struct{} {
	mapped := make(map[string]struct{})
	if e.know == nil || strings.TrimSpace(sender) == "" {
		return mapped
	}
	ids, err := e.know.SenderAssets(ctx, sender)
	if err != nil {
		return mapped
	}
	for _, id := range ids {
		mapped[id] = struct{}{}
	}
	return mapped
}

func (e *Engine) adjustFromHistory(ctx context.Context, logger *slog.Logger, sender, assetID string, confidence float64, score *CandidateScore) float64 {
	if e.history == nil || strings.TrimSpace(sender) == "" {
		return clamp(confidence)
	}
	outcomes, err := e.history.SimilarCases(ctx, sender, assetID)
	if err != nil || len(outcomes) == 0 {
		return clamp(confidence)
	}
	var sum float64
	for _, outcome := range outcomes {
		sum += outcome.Confidence
	}
	mean := sum / float64(len(outcomes))
	logger.Debug("applying history adjustment",
		logging.String(logging.FieldAsset, assetID),
		logging.Int("prior_outcomes", len(outcomes)),
		logging.Float64("mean_confidence", mean))
	switch {
	case mean > 0.7:
		confidence += 0.2
		score.Applications = append(score.Applications, RuleApplication{
			RuleID:       "history-adjustment",
			Contribution: 0.2,
			Detail:       fmt.Sprintf("%d prior outcomes, mean confidence %.2f", len(outcomes), mean),
		})
	case mean < 0.3:
		confidence -= 0.2
		score.Applications = append(score.Applications, RuleApplication{
			RuleID:       "history-adjustment",
			Contribution: -0.2,
			Detail:       fmt.Sprintf("%d prior outcomes, mean confidence %.2f", len(outcomes), mean),
		})
	}
	return clamp(confidence)
}

func combinedText(att mailbox.Attachment, email mailbox.EmailContext) string {
	return strings.Join([]string{att.Filename, email.Subject, email.BodyExcerpt}, " ")
}

func reasoningTrace(score CandidateScore) []string {
	trace := make([]string, 0, len(score.Applications)+1)
	for _, app := range score.Applications {
		if app.Detail != "" {
			trace = append(trace, fmt.Sprintf("%s: %s (contribution %.2f)", app.RuleID, app.Detail, app.Contribution))
			continue
		}
		trace = append(trace, fmt.Sprintf("%s: contribution %.2f", app.RuleID, app.Contribution))
	}
	if len(score.MatchedTerms) > 0 {
		trace = append(trace, "matched terms: "+strings.Join(score.MatchedTerms, ", "))
	}
	return trace
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
