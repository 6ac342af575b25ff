package identify

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/textmatch"
)

// bodyPrefixRunes bounds how much body text feeds term extraction.
const bodyPrefixRunes = 500

// minCandidatesBeforeWidening triggers the fuzzy keyword pass when exact term
// lookup finds fewer candidates than this.
const minCandidatesBeforeWidening = 3

// gatherCandidates assembles the candidate asset set for one attachment:
// exact term lookup, sender-trust shortcut, and a fuzzy-keyword widening pass
// when exact lookup is thin. Results are de-duplicated and ordered by id.
func (e *Engine) gatherCandidates(ctx context.Context, logger *slog.Logger, att mailbox.Attachment, email mailbox.EmailContext, knownAssets []knowledge.Asset, senderAssets map[string]struct{}) []knowledge.Asset {
	terms := extractTerms(att, email)

	byID := make(map[string]knowledge.Asset)

	if e.know != nil {
		if found, err := e.know.SearchAssetProfiles(ctx, terms); err == nil {
			for _, asset := range found {
				byID[asset.ID] = asset
			}
		} else {
			logger.Warn("asset profile search failed, continuing with provided assets", logging.Error(err))
		}
	}
	for _, asset := range knownAssets {
		if matchesAnyTerm(asset, terms) {
			byID[asset.ID] = asset
		}
	}

	// Sender-trust shortcut: mapped assets join even without a term hit.
	if len(senderAssets) > 0 {
		for _, asset := range e.assetPool(ctx, knownAssets) {
			if _, ok := senderAssets[asset.ID]; ok {
				byID[asset.ID] = asset
			}
		}
	}

	if len(byID) < minCandidatesBeforeWidening {
		combined := combinedText(att, email)
		for _, asset := range e.assetPool(ctx, knownAssets) {
			if _, ok := byID[asset.ID]; ok {
				continue
			}
			for _, keyword := range asset.Keywords {
				if res := textmatch.Match(keyword, combined, e.cfg.Match); res.Score > 0 {
					byID[asset.ID] = asset
					break
				}
			}
		}
	}

	candidates := make([]knowledge.Asset, 0, len(byID))
	for _, asset := range byID {
		candidates = append(candidates, asset)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates
}

// assetPool returns the widest asset set available: the provider's full list
// when present, otherwise the caller-supplied assets.
func (e *Engine) assetPool(ctx context.Context, knownAssets []knowledge.Asset) []knowledge.Asset {
	if e.know != nil {
		if all, err := e.know.ListAssets(ctx); err == nil && len(all) > 0 {
			return all
		}
	}
	return knownAssets
}

// extractTerms tokenizes subject, body prefix, and filename into ordered,
// de-duplicated lookup terms.
func extractTerms(att mailbox.Attachment, email mailbox.EmailContext) []string {
	body := email.BodyExcerpt
	if runes := []rune(body); len(runes) > bodyPrefixRunes {
		body = string(runes[:bodyPrefixRunes])
	}
	return textmatch.Terms(email.Subject, body, att.Filename)
}

func matchesAnyTerm(asset knowledge.Asset, terms []string) bool {
	haystack := textmatch.Fold(asset.Name)
	for _, keyword := range asset.Keywords {
		haystack += " " + textmatch.Fold(keyword)
	}
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
