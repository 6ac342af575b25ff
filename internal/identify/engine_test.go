package identify_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"pigeonhole/internal/identify"
	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/mailbox"
)

type fakeKnowledge struct {
	assets  []knowledge.Asset
	senders map[string][]string
}

func (f *fakeKnowledge) SearchAssetProfiles(_ context.Context, terms []string) ([]knowledge.Asset, error) {
	var found []knowledge.Asset
	for _, asset := range f.assets {
		haystack := asset.Name
		for _, kw := range asset.Keywords {
			haystack += " " + kw
		}
		for _, term := range terms {
			if strings.Contains(strings.ToLower(haystack), strings.ToLower(term)) {
				found = append(found, asset)
				break
			}
		}
	}
	return found, nil
}

func (f *fakeKnowledge) ListAssets(context.Context) ([]knowledge.Asset, error) {
	return f.assets, nil
}

func (f *fakeKnowledge) SenderAssets(_ context.Context, sender string) ([]string, error) {
	return f.senders[sender], nil
}

func (f *fakeKnowledge) AllowedCategories(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeKnowledge) FallbackCategory(context.Context, string) (string, error) {
	return "", nil
}

type fakeHistory struct {
	outcomes map[string][]knowledge.PastOutcome
}

func (f *fakeHistory) SimilarCases(_ context.Context, sender, assetID string) ([]knowledge.PastOutcome, error) {
	return f.outcomes[sender+"|"+assetID], nil
}

func defaultConfig() identify.Config {
	return identify.Config{Threshold: 0.6, ReviewConfidence: 0.2}
}

func alphaAsset() knowledge.Asset {
	return knowledge.Asset{ID: "A1", Name: "Alpha Fund", Type: "fund", Keywords: []string{"alpha", "fund"}}
}

func TestIdentifyMatchesAssetByNameAndKeywords(t *testing.T) {
	know := &fakeKnowledge{assets: []knowledge.Asset{alphaAsset()}}
	engine := identify.NewEngine(defaultConfig(), nil, identify.WithKnowledgeProvider(know))

	att := mailbox.Attachment{Filename: "alpha_q4_report.pdf"}
	email := mailbox.EmailContext{
		Sender:      "ir@alpha.example.com",
		Subject:     "Q4 Alpha Fund Report",
		BodyExcerpt: "Please find the quarterly report attached.",
		ReceivedAt:  time.Now(),
	}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if match.AssetID != "A1" {
		t.Fatalf("expected A1, got %q (confidence %v)", match.AssetID, match.Confidence)
	}
	if match.Confidence < 0.8 {
		t.Fatalf("expected strong confidence, got %v", match.Confidence)
	}
	if len(match.Reasoning) == 0 {
		t.Fatal("expected a reasoning trace")
	}
}

func TestIdentifySenderAssociationAlone(t *testing.T) {
	// Scenario: sender mapped to A1, attachment text carries no asset signal.
	// The sender rule alone must carry its base confidence through.
	zeta := knowledge.Asset{ID: "A1", Name: "Zeta Holdings", Type: "fund", Keywords: []string{"zeta"}}
	know := &fakeKnowledge{
		assets:  []knowledge.Asset{zeta},
		senders: map[string][]string{"ir@alpha.com": {"A1"}},
	}
	engine := identify.NewEngine(defaultConfig(), nil, identify.WithKnowledgeProvider(know))

	att := mailbox.Attachment{Filename: "scan0001.pdf"}
	email := mailbox.EmailContext{Sender: "ir@alpha.com", Subject: "documents", BodyExcerpt: "see attached"}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if match.AssetID != "A1" {
		t.Fatalf("expected sender association to select A1, got %q", match.AssetID)
	}
	senderBase := 0.0
	for _, rule := range knowledge.DefaultMatchingRules() {
		if rule.ID == knowledge.RuleSenderAssociation {
			senderBase = rule.BaseConfidence
		}
	}
	if diff := match.Confidence - senderBase; diff > 0.001 || diff < -0.001 {
		t.Fatalf("expected confidence %v (sender rule base), got %v", senderBase, match.Confidence)
	}
}

func TestIdentifyReturnsReviewSentinelWhenNothingMatches(t *testing.T) {
	know := &fakeKnowledge{assets: []knowledge.Asset{alphaAsset()}}
	engine := identify.NewEngine(defaultConfig(), nil, identify.WithKnowledgeProvider(know))

	att := mailbox.Attachment{Filename: "random_invoice.pdf"}
	email := mailbox.EmailContext{Sender: "billing@vendor.example.com", Subject: "invoice", BodyExcerpt: "amount due"}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !match.NeedsReview() {
		t.Fatalf("expected review sentinel, got %q", match.AssetID)
	}
	if match.AssetID != identify.ReviewSentinel {
		t.Fatalf("unexpected sentinel value %q", match.AssetID)
	}
	if match.Confidence != 0.2 {
		t.Fatalf("expected fixed review confidence, got %v", match.Confidence)
	}
}

func TestIdentifyWorksWithoutAnyProviders(t *testing.T) {
	engine := identify.NewEngine(defaultConfig(), nil)

	att := mailbox.Attachment{Filename: "alpha_fund_statement.pdf"}
	email := mailbox.EmailContext{Sender: "ir@alpha.com", Subject: "Alpha Fund statement"}

	match, err := engine.Identify(context.Background(), att, email, []knowledge.Asset{alphaAsset()})
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if match.AssetID != "A1" {
		t.Fatalf("expected match from caller-supplied assets, got %q", match.AssetID)
	}
}

func TestIdentifyRejectsMalformedInput(t *testing.T) {
	engine := identify.NewEngine(defaultConfig(), nil)
	_, err := engine.Identify(context.Background(), mailbox.Attachment{}, mailbox.EmailContext{Sender: "a@b.c"}, nil)
	if err == nil {
		t.Fatal("expected error for empty filename")
	}
	_, err = engine.Identify(context.Background(), mailbox.Attachment{Filename: "x.pdf"}, mailbox.EmailContext{}, nil)
	if err == nil {
		t.Fatal("expected error for empty email context")
	}
}

func TestIdentifyTieBreaksLexicographically(t *testing.T) {
	// Two assets with identical evidence; the smaller id must win.
	a := knowledge.Asset{ID: "B2", Name: "Gamma Fund", Keywords: []string{"gamma"}}
	b := knowledge.Asset{ID: "A1", Name: "Gamma Fund", Keywords: []string{"gamma"}}
	know := &fakeKnowledge{assets: []knowledge.Asset{a, b}}
	engine := identify.NewEngine(defaultConfig(), nil, identify.WithKnowledgeProvider(know))

	att := mailbox.Attachment{Filename: "gamma_fund_notice.pdf"}
	email := mailbox.EmailContext{Sender: "x@y.z", Subject: "Gamma Fund notice"}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if match.AssetID != "A1" {
		t.Fatalf("expected lexicographic tie-break to pick A1, got %q", match.AssetID)
	}
}

func TestIdentifyHistoryBoostClampsToOne(t *testing.T) {
	know := &fakeKnowledge{assets: []knowledge.Asset{alphaAsset()}}
	history := &fakeHistory{outcomes: map[string][]knowledge.PastOutcome{
		"ir@alpha.com|A1": {
			{Sender: "ir@alpha.com", AssetID: "A1", Confidence: 0.9},
			{Sender: "ir@alpha.com", AssetID: "A1", Confidence: 0.85},
		},
	}}
	engine := identify.NewEngine(defaultConfig(), nil,
		identify.WithKnowledgeProvider(know),
		identify.WithHistoryProvider(history))

	att := mailbox.Attachment{Filename: "alpha_fund_q4.pdf"}
	email := mailbox.EmailContext{Sender: "ir@alpha.com", Subject: "Alpha Fund Q4"}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if match.Confidence > 1.0 || match.Confidence < 0 {
		t.Fatalf("confidence out of bounds: %v", match.Confidence)
	}
	if match.AssetID != "A1" {
		t.Fatalf("expected A1, got %q", match.AssetID)
	}
}

func TestIdentifyHistoryPenaltyCanForceReview(t *testing.T) {
	// A borderline match pushed below threshold by poor history must go to review.
	weak := knowledge.Asset{ID: "A1", Name: "Delta Partners", Keywords: []string{"delta", "partners", "capital", "europe"}}
	know := &fakeKnowledge{assets: []knowledge.Asset{weak}}
	history := &fakeHistory{outcomes: map[string][]knowledge.PastOutcome{
		"ops@delta.com|A1": {
			{Sender: "ops@delta.com", AssetID: "A1", Confidence: 0.1},
			{Sender: "ops@delta.com", AssetID: "A1", Confidence: 0.2},
		},
	}}
	engine := identify.NewEngine(defaultConfig(), nil,
		identify.WithKnowledgeProvider(know),
		identify.WithHistoryProvider(history))

	att := mailbox.Attachment{Filename: "delta_notice.pdf"}
	email := mailbox.EmailContext{Sender: "ops@delta.com", Subject: "delta notice"}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !match.NeedsReview() {
		t.Fatalf("expected review after history penalty, got %q at %v", match.AssetID, match.Confidence)
	}
}

func TestIdentifyPerAssetThresholdOverride(t *testing.T) {
	strict := alphaAsset()
	strict.Threshold = 0.99
	know := &fakeKnowledge{assets: []knowledge.Asset{strict}}
	engine := identify.NewEngine(defaultConfig(), nil, identify.WithKnowledgeProvider(know))

	att := mailbox.Attachment{Filename: "alpha_fund_q4.pdf"}
	email := mailbox.EmailContext{Sender: "ir@alpha.com", Subject: "Alpha Fund Q4"}

	match, err := engine.Identify(context.Background(), att, email, nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !match.NeedsReview() {
		t.Fatalf("expected strict per-asset threshold to force review, got %q at %v", match.AssetID, match.Confidence)
	}
}
