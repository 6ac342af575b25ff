package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pigeonhole/internal/classify"
	"pigeonhole/internal/config"
	"pigeonhole/internal/identify"
	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/pipeline"
	"pigeonhole/internal/review"
	"pigeonhole/internal/runstore"
	"pigeonhole/internal/services"
	"pigeonhole/internal/testsupport"
)

func seededKnowledge() *testsupport.MemoryKnowledge {
	know := testsupport.NewMemoryKnowledge()
	know.Assets = []knowledge.Asset{
		{ID: "A1", Name: "Alpha Fund", Type: "fund", Keywords: []string{"alpha", "fund"}},
	}
	know.Categories["fund"] = []string{"statement", "capital-call"}
	know.Fallbacks["fund"] = "statement"
	know.Patterns["statement"] = []knowledge.Pattern{
		{Category: "statement", Expression: `\bstatement\b`, BaseConfidence: 0.8},
	}
	know.Patterns["capital-call"] = []knowledge.Pattern{
		{Category: "capital-call", Expression: `capital[ _-]?call`, BaseConfidence: 0.85},
	}
	return know
}

type fixture struct {
	cfg       *config.Config
	store     *runstore.Store
	connector *testsupport.ScriptedConnector
	orch      *pipeline.Orchestrator
}

func newFixture(t *testing.T, know *testsupport.MemoryKnowledge, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenRunStore(t, cfg)
	connector := testsupport.NewScriptedConnector()

	identifier := identify.NewEngine(identify.Config{
		Threshold:        cfg.Matching.IdentificationThreshold,
		ReviewConfidence: cfg.Matching.ReviewConfidence,
	}, nil,
		identify.WithKnowledgeProvider(know),
		identify.WithRuleProvider(know),
		identify.WithHistoryProvider(know))

	classifier := classify.NewEngine(classify.Config{
		Threshold:          cfg.Matching.CategoryThreshold,
		FallbackConfidence: cfg.Matching.FallbackCategoryConfidence,
	}, nil,
		classify.WithKnowledgeProvider(know),
		classify.WithRuleProvider(know))

	router := review.NewRouter(store, nil, review.WithFeedback(know))
	orch := pipeline.New(cfg, store, connector, identifier, classifier, nil,
		pipeline.WithReviewRouter(router),
		pipeline.WithRuleProvider(know))

	return &fixture{cfg: cfg, store: store, connector: connector, orch: orch}
}

func statementEmail(id, filename string) (mailbox.EmailSummary, map[string][]byte) {
	summary := mailbox.EmailSummary{
		ID:          id,
		Sender:      "ir@alpha.example.com",
		Subject:     "Alpha Fund statement",
		BodyExcerpt: "quarterly statement attached",
		ReceivedAt:  time.Now(),
		Attachments: []mailbox.AttachmentRef{{ID: "p1", Filename: filename}},
	}
	return summary, map[string][]byte{"p1": []byte("alpha fund statement body")}
}

func TestRunFilesMatchingAttachments(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	summary, contents := statementEmail("msg-1", "alpha_fund_statement.pdf")
	fx.connector.AddEmail(summary, contents)

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != runstore.StatusCompleted {
		t.Fatalf("expected completed run, got %s", result.Status)
	}
	if result.EmailsFound != 1 || result.EmailsProcessed != 1 || result.Errors != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Details) != 1 {
		t.Fatalf("expected one email detail, got %d", len(result.Details))
	}
	detail := result.Details[0]
	if detail.AttachmentsProcessed != 1 || detail.AttachmentsClassified != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if len(detail.NeedsReview) != 0 {
		t.Fatalf("nothing should need review: %+v", detail.NeedsReview)
	}

	persisted, err := fx.store.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if persisted == nil || persisted.Status != runstore.StatusCompleted {
		t.Fatalf("run not persisted: %+v", persisted)
	}
}

func TestRunSkipsDuplicateAttachments(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	first, contents := statementEmail("msg-1", "alpha_fund_statement.pdf")
	second, secondContents := statementEmail("msg-2", "alpha_fund_statement.pdf")
	fx.connector.AddEmail(first, contents)
	fx.connector.AddEmail(second, secondContents)

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("duplicates must not count as errors: %+v", result)
	}
	if len(result.Details) != 2 {
		t.Fatalf("expected two email details, got %d", len(result.Details))
	}
	if result.Details[0].AttachmentsProcessed != 1 {
		t.Fatalf("first occurrence must process: %+v", result.Details[0])
	}
	if result.Details[1].AttachmentsSkipped != 1 || result.Details[1].AttachmentsProcessed != 0 {
		t.Fatalf("second occurrence must be skipped: %+v", result.Details[1])
	}
}

func TestRunConcurrentDuplicatesProcessedOnce(t *testing.T) {
	concurrent := func(c *config.Config) { c.Processing.EmailConcurrency = 2 }
	fx := newFixture(t, seededKnowledge(), concurrent)
	first, firstContents := statementEmail("msg-1", "alpha_fund_statement.pdf")
	second, secondContents := statementEmail("msg-2", "alpha_fund_statement.pdf")
	fx.connector.AddEmail(first, firstContents)
	fx.connector.AddEmail(second, secondContents)

	// Hold both downloads until each is in flight so the identical payloads
	// reach the dedup ledger at the same time.
	var mu sync.Mutex
	arrived := 0
	release := make(chan struct{})
	fx.connector.OnDownload = func(ctx context.Context, _ string) error {
		mu.Lock()
		arrived++
		if arrived == 2 {
			close(release)
		}
		mu.Unlock()
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var processed, skipped int
	for _, detail := range result.Details {
		processed += detail.AttachmentsProcessed
		skipped += detail.AttachmentsSkipped
	}
	if processed != 1 || skipped != 1 {
		t.Fatalf("identical payloads must process exactly once: processed=%d skipped=%d", processed, skipped)
	}
	if result.Errors != 0 {
		t.Fatalf("losing the claim must not count as an error: %+v", result)
	}
}

func TestRunStopMidEmailCountsRemainingAsSkipped(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	summary := mailbox.EmailSummary{
		ID:      "msg-1",
		Sender:  "ir@alpha.example.com",
		Subject: "Alpha Fund statement",
		Attachments: []mailbox.AttachmentRef{
			{ID: "p1", Filename: "alpha_fund_statement.pdf"},
			{ID: "p2", Filename: "alpha_fund_addendum.pdf"},
		},
	}
	fx.connector.AddEmail(summary, map[string][]byte{
		"p1": []byte("alpha fund statement body"),
		"p2": []byte("alpha fund addendum body"),
	})
	fx.connector.OnDownload = func(_ context.Context, key string) error {
		if key == "msg-1/p1" {
			fx.orch.Stop()
		}
		return nil
	}

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != runstore.StatusCancelled {
		t.Fatalf("expected cancelled run, got %s", result.Status)
	}
	detail := result.Details[0]
	if detail.AttachmentsProcessed != 1 {
		t.Fatalf("in-flight attachment must finish: %+v", detail)
	}
	if detail.AttachmentsSkipped != 1 {
		t.Fatalf("unstarted attachment must be counted as skipped: %+v", detail)
	}
	if detail.Errors != 0 {
		t.Fatalf("stopping is not an error: %+v", detail)
	}
}

func TestRunForceReprocessBypassesDedup(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	summary, contents := statementEmail("msg-1", "alpha_fund_statement.pdf")
	fx.connector.AddEmail(summary, contents)

	if _, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox", ForceReprocess: true})
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if result.Details[0].AttachmentsProcessed != 1 || result.Details[0].AttachmentsSkipped != 0 {
		t.Fatalf("forced run must reprocess: %+v", result.Details[0])
	}
}

func TestRunConnectorFailureFailsRun(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	fx.connector.FailListing(errors.New("imap unreachable"))

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if result == nil || result.Status != runstore.StatusFailed {
		t.Fatalf("expected failed run, got %+v", result)
	}
}

func TestRunDownloadFailureIsIsolated(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	summary := mailbox.EmailSummary{
		ID:      "msg-1",
		Sender:  "ir@alpha.example.com",
		Subject: "Alpha Fund statement",
		Attachments: []mailbox.AttachmentRef{
			{ID: "p1", Filename: "broken.pdf"},
			{ID: "p2", Filename: "alpha_fund_statement.pdf"},
		},
	}
	fx.connector.AddEmail(summary, map[string][]byte{
		"p1": []byte("never served"),
		"p2": []byte("alpha fund statement body"),
	})
	fx.connector.OnDownload = func(_ context.Context, key string) error {
		if key == "msg-1/p1" {
			return errors.New("connection reset")
		}
		return nil
	}

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != runstore.StatusCompleted {
		t.Fatalf("one bad attachment must not fail the run: %s", result.Status)
	}
	detail := result.Details[0]
	if detail.Errors != 1 || detail.AttachmentsProcessed != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if result.Errors != 1 {
		t.Fatalf("run must surface the error count: %+v", result)
	}
}

func TestRunCancellationPreservesCompletedBatches(t *testing.T) {
	fx := newFixture(t, seededKnowledge(), testsupport.WithBatchSize(1))
	for _, id := range []string{"msg-1", "msg-2", "msg-3"} {
		summary, contents := statementEmail(id, id+".pdf")
		fx.connector.AddEmail(summary, contents)
	}
	fx.connector.OnDownload = func(context.Context, string) error {
		fx.orch.Stop()
		return nil
	}

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != runstore.StatusCancelled {
		t.Fatalf("expected cancelled run, got %s", result.Status)
	}
	if result.EmailsProcessed != 1 {
		t.Fatalf("first batch must be preserved: %+v", result)
	}
	if result.EmailsSkipped != 2 {
		t.Fatalf("later batches must never start: %+v", result)
	}
	if got := fx.orch.Status().State; got != pipeline.StateCancelled {
		t.Fatalf("expected cancelled state, got %s", got)
	}
}

func TestRunTimeoutKeepsPartialResults(t *testing.T) {
	cfg := func(c *config.Config) { c.Processing.AttachmentTimeout = 1 }
	fx := newFixture(t, seededKnowledge(), cfg)

	summary := mailbox.EmailSummary{
		ID:      "msg-1",
		Sender:  "ir@alpha.example.com",
		Subject: "Alpha Fund statement",
		Attachments: []mailbox.AttachmentRef{
			{ID: "p1", Filename: "alpha_fund_statement.pdf"},
			{ID: "p2", Filename: "slow.pdf"},
		},
	}
	fx.connector.AddEmail(summary, map[string][]byte{
		"p1": []byte("alpha fund statement body"),
		"p2": []byte("never arrives"),
	})
	fx.connector.OnDownload = func(ctx context.Context, key string) error {
		if key == "msg-1/p2" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	detail := result.Details[0]
	if detail.AttachmentsProcessed != 1 {
		t.Fatalf("completed attachment must be kept: %+v", detail)
	}
	if detail.Errors != 1 {
		t.Fatalf("timed-out attachment must be counted: %+v", detail)
	}
	if result.Status != runstore.StatusCompleted {
		t.Fatalf("timeout must not fail the run: %s", result.Status)
	}
}

func TestRunQuarantinesBlockedExtensions(t *testing.T) {
	know := seededKnowledge()
	know.FileRules["exe"] = []knowledge.Rule{{ID: knowledge.RuleQuarantine}}
	fx := newFixture(t, know)

	summary := mailbox.EmailSummary{
		ID:          "msg-1",
		Sender:      "ir@alpha.example.com",
		Subject:     "tools",
		Attachments: []mailbox.AttachmentRef{{ID: "p1", Filename: "installer.exe"}},
	}
	fx.connector.AddEmail(summary, map[string][]byte{"p1": []byte("MZ")})

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	detail := result.Details[0]
	if detail.Quarantined != 1 || detail.AttachmentsProcessed != 0 || detail.Errors != 0 {
		t.Fatalf("quarantine counts separately from errors: %+v", detail)
	}
	if result.Quarantined != 1 {
		t.Fatalf("run must aggregate quarantined count: %+v", result)
	}
	if got := fx.connector.Downloads(); len(got) != 0 {
		t.Fatalf("quarantined attachments must not be downloaded: %v", got)
	}
}

func TestRunRoutesUnidentifiedToReview(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	summary := mailbox.EmailSummary{
		ID:          "msg-1",
		Sender:      "billing@vendor.example.com",
		Subject:     "invoice",
		BodyExcerpt: "amount due",
		Attachments: []mailbox.AttachmentRef{{ID: "p1", Filename: "random_invoice.pdf"}},
	}
	fx.connector.AddEmail(summary, map[string][]byte{"p1": []byte("pay now")})

	result, err := fx.orch.Run(context.Background(), pipeline.RunRequest{MailboxID: "inbox"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	detail := result.Details[0]
	if detail.AttachmentsProcessed != 1 {
		t.Fatalf("review-routed attachments still count as processed: %+v", detail)
	}
	if len(detail.NeedsReview) != 1 || detail.NeedsReview[0] != "random_invoice.pdf" {
		t.Fatalf("unexpected needs-review list: %+v", detail.NeedsReview)
	}

	pending, err := fx.store.PendingReviews(context.Background())
	if err != nil {
		t.Fatalf("PendingReviews failed: %v", err)
	}
	if len(pending) != 1 || pending[0].SuggestedAssetID != identify.ReviewSentinel {
		t.Fatalf("expected one pending review item, got %+v", pending)
	}
	if !strings.Contains(pending[0].Reasoning, "threshold") {
		t.Fatalf("expected reasoning trace on review item, got %q", pending[0].Reasoning)
	}
}

func TestRunRejectsEmptyMailboxID(t *testing.T) {
	fx := newFixture(t, seededKnowledge())
	_, err := fx.orch.Run(context.Background(), pipeline.RunRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
