package review

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/runstore"
	"pigeonhole/internal/services"
)

// Queue is the persistence surface the router needs from the run store.
type Queue interface {
	AddReviewItem(ctx context.Context, item runstore.ReviewItem) error
	GetReviewItem(ctx context.Context, id string) (*runstore.ReviewItem, error)
	PendingReviews(ctx context.Context) ([]runstore.ReviewItem, error)
	ResolveReviewItem(ctx context.Context, id, assetID, category, notes string) (bool, error)
}

// Router enqueues attachments for human review and applies reviewer
// dispositions. A disposition resolves the stored item exactly once and feeds
// the chosen asset back into the knowledge layer so future runs benefit.
type Router struct {
	queue    Queue
	feedback knowledge.FeedbackRecorder
	logger   *slog.Logger
}

// Option configures optional router collaborators.
type Option func(*Router)

// WithFeedback wires the knowledge-layer recorder notified on disposition.
func WithFeedback(recorder knowledge.FeedbackRecorder) Option {
	return func(r *Router) { r.feedback = recorder }
}

// NewRouter builds a review router over the given queue.
func NewRouter(queue Queue, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	router := &Router{queue: queue, logger: logger}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// Enqueue stores a new pending review item and returns its assigned id.
func (r *Router) Enqueue(ctx context.Context, item runstore.ReviewItem) (string, error) {
	if strings.TrimSpace(item.Filename) == "" {
		return "", services.Wrap(services.ErrValidation, "review", "enqueue",
			"review item has no filename", nil)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := r.queue.AddReviewItem(ctx, item); err != nil {
		return "", services.Wrap(services.ErrTransient, "review", "enqueue",
			"store review item", err)
	}
	r.logger.Info("attachment routed to review",
		logging.String(logging.FieldAttachment, item.Filename),
		logging.String("review_id", item.ID),
		logging.Float64(logging.FieldConfidence, item.Confidence))
	return item.ID, nil
}

// Pending lists unresolved review items, oldest first.
func (r *Router) Pending(ctx context.Context) ([]runstore.ReviewItem, error) {
	return r.queue.PendingReviews(ctx)
}

// SubmitDisposition applies a reviewer's decision. The first submission wins;
// a second submission for the same item returns ErrDuplicate, and an unknown
// id returns ErrNotFound. After resolving, the chosen asset is recorded as a
// sender mapping and a review-sourced outcome so future identifications of
// this sender improve.
func (r *Router) SubmitDisposition(ctx context.Context, reviewID, assetID, category, notes string) error {
	if strings.TrimSpace(assetID) == "" {
		return services.Wrap(services.ErrValidation, "review", "disposition",
			"chosen asset id is empty", nil)
	}

	item, err := r.queue.GetReviewItem(ctx, reviewID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "review", "disposition",
			"load review item", err)
	}
	if item == nil {
		return services.Wrap(services.ErrNotFound, "review", "disposition",
			"review item "+reviewID+" not found", nil)
	}

	applied, err := r.queue.ResolveReviewItem(ctx, reviewID, assetID, category, notes)
	if err != nil {
		return services.Wrap(services.ErrTransient, "review", "disposition",
			"resolve review item", err)
	}
	if !applied {
		return services.Wrap(services.ErrDuplicate, "review", "disposition",
			"review item "+reviewID+" already resolved", nil)
	}

	r.logger.Info("review disposition applied",
		logging.String("review_id", reviewID),
		logging.String(logging.FieldAsset, assetID),
		logging.String("category", category))

	if r.feedback == nil {
		return nil
	}
	if item.Sender != "" {
		if err := r.feedback.UpsertSenderMapping(ctx, item.Sender, assetID); err != nil {
			return services.Wrap(services.ErrTransient, "review", "disposition",
				"record sender mapping", err)
		}
	}
	outcome := knowledge.PastOutcome{
		Sender:     item.Sender,
		AssetID:    assetID,
		Confidence: 1.0,
		Source:     "review",
	}
	if err := r.feedback.RecordOutcome(ctx, outcome); err != nil {
		return services.Wrap(services.ErrTransient, "review", "disposition",
			"record outcome", err)
	}
	return nil
}
