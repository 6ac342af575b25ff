package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pigeonhole/internal/identify"
	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/runstore"
	"pigeonhole/internal/services"
)

// attachmentOutcome is the isolated result of one attachment's processing.
type attachmentOutcome struct {
	processed   bool
	classified  bool
	skipped     bool
	quarantined bool
	failed      bool
	needsReview string
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, runID string, req RunRequest) (*runstore.RunResult, error) {
	result := &runstore.RunResult{
		RunID:     runID,
		MailboxID: req.MailboxID,
		Status:    runstore.StatusCompleted,
		StartedAt: time.Now(),
	}

	criteria := mailbox.ListCriteria{
		Since:              time.Now().Add(-o.lookBack(req)),
		RequireAttachments: true,
	}
	emails, err := o.connector.ListEmails(ctx, criteria)
	if err != nil {
		result.Status = runstore.StatusFailed
		return result, services.Wrap(services.ErrUnavailable, "pipeline", "list emails",
			"email connector unreachable", err)
	}
	result.EmailsFound = len(emails)
	logger.Info("run started", logging.Int("emails_found", len(emails)))

	batchSize := o.batchSize()
	for start := 0; start < len(emails); start += batchSize {
		if o.cancelRequested(ctx) {
			result.Status = runstore.StatusCancelled
			result.EmailsSkipped += len(emails) - start
			logger.Info("cancellation requested, remaining batches skipped",
				logging.Int("emails_remaining", len(emails)-start))
			break
		}
		end := start + batchSize
		if end > len(emails) {
			end = len(emails)
		}
		details := o.processBatch(ctx, logger, runID, req, emails[start:end])
		for _, detail := range details {
			result.EmailsProcessed++
			result.Errors += detail.Errors
			result.Quarantined += detail.Quarantined
			result.Details = append(result.Details, detail)
			if err := o.store.SaveEmailDetail(ctx, runID, detail); err != nil {
				logger.Error("persisting email detail failed",
					logging.String(logging.FieldEmailID, detail.EmailID), logging.Error(err))
			}
		}
	}

	if o.cancelRequested(ctx) && result.Status != runstore.StatusCancelled {
		result.Status = runstore.StatusCancelled
	}
	return result, nil
}

// processBatch runs one batch with at most emailConcurrency emails in flight.
// Results keep the batch's listing order regardless of completion order.
func (o *Orchestrator) processBatch(ctx context.Context, logger *slog.Logger, runID string, req RunRequest, batch []mailbox.EmailSummary) []runstore.EmailDetail {
	details := make([]runstore.EmailDetail, len(batch))
	sem := make(chan struct{}, o.emailConcurrency())
	var wg sync.WaitGroup

	for i, email := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, summary mailbox.EmailSummary) {
			defer wg.Done()
			defer func() { <-sem }()
			details[slot] = o.processEmail(ctx, logger, runID, req, summary)
		}(i, email)
	}
	wg.Wait()
	return details
}

// processEmail gathers all attachments of one email under a shared timeout
// budget. Attachments that complete before the budget expires are kept even
// when later ones time out.
func (o *Orchestrator) processEmail(ctx context.Context, logger *slog.Logger, runID string, req RunRequest, summary mailbox.EmailSummary) runstore.EmailDetail {
	detail := runstore.EmailDetail{EmailID: summary.ID}
	if len(summary.Attachments) == 0 {
		return detail
	}

	emailLogger := logger.With(logging.String(logging.FieldEmailID, summary.ID))
	gatherCtx, cancel := context.WithTimeout(ctx, o.attachmentTimeout())
	defer cancel()

	outcomes := make([]attachmentOutcome, len(summary.Attachments))
	sem := make(chan struct{}, o.attachmentConcurrency())
	var wg sync.WaitGroup

	for i, ref := range summary.Attachments {
		// Cooperative cancellation: started attachments finish, unstarted
		// ones are counted as skipped so every attachment shows up somewhere.
		if o.cancelRequested(ctx) {
			markSkipped(outcomes, i)
			break
		}
		if gatherCtx.Err() != nil {
			outcomes[i] = attachmentOutcome{failed: true}
			continue
		}
		wg.Add(1)
		select {
		case sem <- struct{}{}:
		case <-gatherCtx.Done():
			wg.Done()
			outcomes[i] = attachmentOutcome{failed: true}
			continue
		}
		// Re-check after the semaphore wait: a stop that arrived while this
		// attachment was queued behind in-flight work still applies to it.
		if o.cancelRequested(ctx) {
			wg.Done()
			<-sem
			markSkipped(outcomes, i)
			break
		}
		go func(slot int, ref mailbox.AttachmentRef) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[slot] = o.processAttachment(gatherCtx, emailLogger, runID, req, summary, ref)
		}(i, ref)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		switch {
		case outcome.processed:
			detail.AttachmentsProcessed++
			if outcome.classified {
				detail.AttachmentsClassified++
			}
			if outcome.needsReview != "" {
				detail.NeedsReview = append(detail.NeedsReview, outcome.needsReview)
			}
		case outcome.skipped:
			detail.AttachmentsSkipped++
		case outcome.quarantined:
			detail.Quarantined++
		case outcome.failed:
			detail.Errors++
		}
	}
	return detail
}

func markSkipped(outcomes []attachmentOutcome, from int) {
	for i := from; i < len(outcomes); i++ {
		outcomes[i] = attachmentOutcome{skipped: true}
	}
}

// processAttachment performs the download-identify-classify sequence for one
// attachment. Every failure is captured in the outcome, never propagated, so
// one bad attachment cannot abort its email.
func (o *Orchestrator) processAttachment(ctx context.Context, logger *slog.Logger, runID string, req RunRequest, summary mailbox.EmailSummary, ref mailbox.AttachmentRef) attachmentOutcome {
	attLogger := logger.With(logging.String(logging.FieldAttachment, ref.Filename))

	if o.isQuarantined(ctx, attLogger, ref.Filename) {
		attLogger.Warn("attachment quarantined by file rule")
		return attachmentOutcome{quarantined: true}
	}

	content, err := o.connector.DownloadAttachment(ctx, summary.ID, ref.ID)
	if err != nil {
		attLogger.Warn("attachment download failed", logging.Error(err))
		return attachmentOutcome{failed: true}
	}

	att := mailbox.Attachment{
		ID:          ref.ID,
		Filename:    ref.Filename,
		Content:     content,
		Size:        int64(len(content)),
		ContentType: ref.ContentType,
	}

	// Claim the fingerprint before any processing. The conditional insert is
	// the dedup decision: concurrent duplicates race for one ledger row, the
	// loser is skipped.
	fingerprint := att.Fingerprint()
	claimed := false
	if !req.ForceReprocess {
		won, err := o.store.ClaimAttachment(ctx, req.MailboxID, fingerprint, runID, summary.ID, ref.Filename)
		if err != nil {
			attLogger.Warn("dedup claim failed, processing anyway", logging.Error(err))
		} else if !won {
			attLogger.Info("duplicate attachment skipped")
			return attachmentOutcome{skipped: true}
		} else {
			claimed = true
		}
	}

	email := mailbox.EmailContext{
		ID:          summary.ID,
		Sender:      summary.Sender,
		Subject:     summary.Subject,
		BodyExcerpt: summary.BodyExcerpt,
		ReceivedAt:  summary.ReceivedAt,
	}

	match, err := o.identifier.Identify(ctx, att, email, nil)
	if err != nil {
		attLogger.Warn("identification failed", logging.Error(err))
		if claimed {
			o.releaseClaim(ctx, attLogger, req.MailboxID, fingerprint)
		}
		return attachmentOutcome{failed: true}
	}

	outcome := attachmentOutcome{processed: true}
	var category string
	if !match.NeedsReview() {
		categoryMatch, err := o.classifier.Classify(ctx, att, email, match.AssetType)
		if err != nil {
			attLogger.Warn("classification failed", logging.Error(err))
		} else if categoryMatch != nil {
			outcome.classified = true
			category = categoryMatch.Category
		}
	}

	if match.NeedsReview() || !outcome.classified {
		outcome.needsReview = ref.Filename
		o.routeToReview(ctx, attLogger, runID, summary, ref, match, category)
	} else {
		attLogger.Info("attachment filed",
			logging.String(logging.FieldAsset, match.AssetID),
			logging.String("category", category),
			logging.Float64(logging.FieldConfidence, match.Confidence))
	}

	if req.ForceReprocess {
		if err := o.store.MarkProcessed(ctx, req.MailboxID, fingerprint, runID, summary.ID, ref.Filename); err != nil {
			attLogger.Warn("recording dedup fingerprint failed", logging.Error(err))
		}
	}
	return outcome
}

// releaseClaim undoes a dedup claim for an attachment that failed after
// claiming, so later runs can retry it. Uses a cancellation-free context so a
// timed-out attachment can still release.
func (o *Orchestrator) releaseClaim(ctx context.Context, logger *slog.Logger, mailboxID, fingerprint string) {
	if err := o.store.ReleaseAttachment(context.WithoutCancel(ctx), mailboxID, fingerprint); err != nil {
		logger.Warn("releasing dedup claim failed", logging.Error(err))
	}
}

// isQuarantined consults the file-processing rules for the attachment's
// extension. Rule lookups degrade to "not quarantined".
func (o *Orchestrator) isQuarantined(ctx context.Context, logger *slog.Logger, filename string) bool {
	if o.rules == nil {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	rules, err := o.rules.FileProcessingRules(ctx, ext)
	if err != nil {
		logger.Warn("file rule lookup failed", logging.Error(err))
		return false
	}
	for _, rule := range rules {
		if rule.ID == knowledge.RuleQuarantine {
			return true
		}
	}
	return false
}

func (o *Orchestrator) routeToReview(ctx context.Context, logger *slog.Logger, runID string, summary mailbox.EmailSummary, ref mailbox.AttachmentRef, match identify.AssetMatch, category string) {
	if o.router == nil {
		return
	}
	item := runstore.ReviewItem{
		RunID:             runID,
		EmailID:           summary.ID,
		Filename:          ref.Filename,
		Sender:            summary.Sender,
		Subject:           summary.Subject,
		SuggestedAssetID:  match.AssetID,
		SuggestedCategory: category,
		Confidence:        match.Confidence,
		Reasoning:         strings.Join(match.Reasoning, "; "),
	}
	if _, err := o.router.Enqueue(ctx, item); err != nil {
		logger.Warn("routing attachment to review failed", logging.Error(err))
	}
}
