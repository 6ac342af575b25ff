package identify

import (
	"fmt"
	"strings"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/textmatch"
)

// fuzzyDiscount reduces fuzzy keyword evidence relative to exact hits.
const fuzzyDiscount = 0.8

// scoreCandidate evaluates every matching rule against one candidate asset.
// The final confidence is the weight-normalized sum over rules that produced
// evidence, so a single decisive rule (e.g. a sender mapping) carries its base
// confidence through undiluted.
func (e *Engine) scoreCandidate(asset knowledge.Asset, combined string, senderAssets map[string]struct{}, rules []knowledge.Rule) CandidateScore {
	score := CandidateScore{Asset: asset}

	var weightedSum, contributingWeight float64
	for _, rule := range rules {
		if rule.Kind != knowledge.RuleMatching {
			continue
		}
		raw, detail, terms := e.applyRule(rule, asset, combined, senderAssets)
		if raw <= 0 {
			continue
		}
		raw = clamp(raw)
		weight := rule.Weight
		if weight <= 0 {
			continue
		}
		weightedSum += raw * weight
		contributingWeight += weight
		score.Applications = append(score.Applications, RuleApplication{
			RuleID:       rule.ID,
			RawScore:     raw,
			Weight:       weight,
			Contribution: raw * weight,
			Detail:       detail,
		})
		score.MatchedTerms = append(score.MatchedTerms, terms...)
	}

	if contributingWeight > 0 {
		score.Confidence = clamp(weightedSum / contributingWeight)
	}
	return score
}

func (e *Engine) applyRule(rule knowledge.Rule, asset knowledge.Asset, combined string, senderAssets map[string]struct{}) (float64, string, []string) {
	switch rule.ID {
	case knowledge.RuleNameMatch:
		return e.scoreNameMatch(rule, asset, combined)
	case knowledge.RuleSenderAssociation:
		return scoreSenderAssociation(rule, asset, senderAssets)
	case knowledge.RuleKeywordMatch:
		return e.scoreKeywordMatch(rule, asset, combined)
	default:
		// Unknown provider rules are ignored rather than guessed at.
		return 0, "", nil
	}
}

// scoreNameMatch scores a full asset-name substring at the rule's base
// confidence; otherwise two or more shared significant words score
// proportionally to the word-overlap ratio.
func (e *Engine) scoreNameMatch(rule knowledge.Rule, asset knowledge.Asset, combined string) (float64, string, []string) {
	name := strings.TrimSpace(asset.Name)
	if name == "" {
		return 0, "", nil
	}
	if strings.Contains(textmatch.Fold(combined), textmatch.Fold(name)) {
		return rule.BaseConfidence, fmt.Sprintf("full name %q present", name), []string{textmatch.Fold(name)}
	}

	nameWords := textmatch.Tokenize(name)
	if len(nameWords) == 0 {
		return 0, "", nil
	}
	shared := textmatch.SharedWords(name, combined)
	if shared < 2 {
		return 0, "", nil
	}
	ratio := float64(shared) / float64(len(nameWords))
	return rule.BaseConfidence * ratio, fmt.Sprintf("%d of %d name words present", shared, len(nameWords)), nil
}

// scoreSenderAssociation applies the rule's base confidence when the sender is
// mapped to this asset, zero otherwise.
func scoreSenderAssociation(rule knowledge.Rule, asset knowledge.Asset, senderAssets map[string]struct{}) (float64, string, []string) {
	if _, ok := senderAssets[asset.ID]; !ok {
		return 0, "", nil
	}
	return rule.BaseConfidence, "sender mapped to asset", nil
}

// scoreKeywordMatch tries each keyword exactly, then fuzzily, and combines:
// exact and discounted fuzzy averages, a coverage multiplier, and a small
// multi-match bonus, all scaled by the rule's base confidence.
func (e *Engine) scoreKeywordMatch(rule knowledge.Rule, asset knowledge.Asset, combined string) (float64, string, []string) {
	if len(asset.Keywords) == 0 {
		return 0, "", nil
	}

	folded := textmatch.Fold(combined)
	var exactScores, fuzzyScores []float64
	var matched []string
	for _, keyword := range asset.Keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(folded, textmatch.Fold(keyword)) {
			exactScores = append(exactScores, 1.0)
			matched = append(matched, textmatch.Fold(keyword))
			continue
		}
		if res := textmatch.Match(keyword, combined, e.cfg.Match); res.Score > 0 {
			fuzzyScores = append(fuzzyScores, res.Score)
			matched = append(matched, res.Token)
		}
	}

	hits := len(exactScores) + len(fuzzyScores)
	if hits == 0 {
		return 0, "", nil
	}

	var parts []float64
	if len(exactScores) > 0 {
		parts = append(parts, mean(exactScores))
	}
	if len(fuzzyScores) > 0 {
		parts = append(parts, mean(fuzzyScores)*fuzzyDiscount)
	}
	combinedScore := mean(parts)

	coverage := float64(hits) / float64(len(asset.Keywords))
	switch {
	case coverage >= 0.5:
		// full weight
	case coverage >= 0.25:
		combinedScore *= 0.9
	default:
		combinedScore *= 0.7
	}
	if hits >= 2 {
		combinedScore *= 1.2
	}
	combinedScore = clamp(combinedScore)

	detail := fmt.Sprintf("%d of %d keywords matched (%d exact, %d fuzzy)",
		hits, len(asset.Keywords), len(exactScores), len(fuzzyScores))
	return combinedScore * rule.BaseConfidence, detail, matched
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
