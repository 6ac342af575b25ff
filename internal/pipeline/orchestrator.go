package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"pigeonhole/internal/classify"
	"pigeonhole/internal/config"
	"pigeonhole/internal/identify"
	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/review"
	"pigeonhole/internal/runstore"
	"pigeonhole/internal/services"
)

// Orchestrator drives one mailbox processing run at a time: list emails, fan
// out over bounded email and attachment workers, identify and classify each
// attachment, and aggregate the run result. Cancellation is cooperative and
// checked before each batch and before each attachment starts; in-flight
// attachment work always runs to completion or timeout.
type Orchestrator struct {
	cfg        config.Processing
	lockPath   string
	connector  mailbox.Connector
	identifier *identify.Engine
	classifier *classify.Engine
	store      *runstore.Store
	router     *review.Router
	rules      knowledge.RuleProvider
	logger     *slog.Logger

	mu        sync.Mutex
	state     State
	current   Status
	cancelled atomic.Bool
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithRuleProvider wires the file-processing rule source used for the
// quarantine check.
func WithRuleProvider(p knowledge.RuleProvider) Option {
	return func(o *Orchestrator) { o.rules = p }
}

// WithReviewRouter wires the human-review queue for below-threshold matches.
func WithReviewRouter(r *review.Router) Option {
	return func(o *Orchestrator) { o.router = r }
}

// New builds an orchestrator. The run store, connector, and both engines are
// required; review routing and file rules are optional.
func New(cfg *config.Config, store *runstore.Store, connector mailbox.Connector,
	identifier *identify.Engine, classifier *classify.Engine, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:        cfg.Processing,
		lockPath:   filepath.Join(cfg.Paths.DataDir, "pigeonhole.lock"),
		connector:  connector,
		identifier: identifier,
		classifier: classifier,
		store:      store,
		logger:     logger,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns a snapshot of the orchestrator state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := o.current
	snapshot.State = o.state
	return snapshot
}

// Stop requests cooperative cancellation of the active run. Idempotent; a
// stop with no run in flight is a no-op.
func (o *Orchestrator) Stop() {
	o.cancelled.Store(true)
}

// Run processes one mailbox end to end and returns the persisted run result.
// Only connector unavailability fails the run; email and attachment failures
// are isolated, counted, and the run proceeds.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*runstore.RunResult, error) {
	if strings.TrimSpace(req.MailboxID) == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "mailbox id is empty", nil)
	}

	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return nil, services.Wrap(services.ErrUnavailable, "pipeline", "run", "a run is already in progress", nil)
	}
	runID := uuid.NewString()
	o.state = StateRunning
	o.current = Status{State: StateRunning, RunID: runID, MailboxID: req.MailboxID, StartedAt: time.Now()}
	o.cancelled.Store(false)
	o.mu.Unlock()

	lock := flock.New(o.lockPath)
	locked, err := lock.TryLock()
	if err == nil && !locked {
		err = services.Wrap(services.ErrUnavailable, "pipeline", "run", "another orchestrator owns the run store", nil)
	} else if err != nil {
		err = services.Wrap(services.ErrUnavailable, "pipeline", "run", "acquire run lock", err)
	}
	if err != nil {
		o.setState(StateFailed)
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithRunID(ctx, runID)
	logger := o.logger.With(logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldMailbox, req.MailboxID))

	if err := o.store.CreateRun(ctx, runID, req.MailboxID); err != nil {
		o.setState(StateFailed)
		return nil, services.Wrap(services.ErrTransient, "pipeline", "run", "record run start", err)
	}

	result, runErr := o.execute(ctx, logger, runID, req)
	if finishErr := o.store.FinishRun(ctx, result); finishErr != nil {
		logger.Error("persisting run result failed", logging.Error(finishErr))
		if runErr == nil {
			runErr = services.Wrap(services.ErrTransient, "pipeline", "run", "persist run result", finishErr)
		}
	}

	switch result.Status {
	case runstore.StatusCancelled:
		o.setState(StateCancelled)
	case runstore.StatusFailed:
		o.setState(StateFailed)
	default:
		o.setState(StateCompleted)
	}

	logger.Info("run finished",
		logging.String("status", string(result.Status)),
		logging.Int("emails_found", result.EmailsFound),
		logging.Int("emails_processed", result.EmailsProcessed),
		logging.Int("emails_skipped", result.EmailsSkipped),
		logging.Int("errors", result.Errors),
		logging.Int("quarantined", result.Quarantined))
	return result, runErr
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *Orchestrator) cancelRequested(ctx context.Context) bool {
	return o.cancelled.Load() || ctx.Err() != nil
}

// lookBack resolves the listing window for a request.
func (o *Orchestrator) lookBack(req RunRequest) time.Duration {
	if req.LookBack > 0 {
		return req.LookBack
	}
	days := o.cfg.LookBackDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func (o *Orchestrator) batchSize() int {
	if o.cfg.BatchSize > 0 {
		return o.cfg.BatchSize
	}
	return 10
}

func (o *Orchestrator) emailConcurrency() int {
	if o.cfg.EmailConcurrency > 0 {
		return o.cfg.EmailConcurrency
	}
	return 4
}

func (o *Orchestrator) attachmentConcurrency() int {
	if o.cfg.AttachmentConcurrency > 0 {
		return o.cfg.AttachmentConcurrency
	}
	return 2
}

func (o *Orchestrator) attachmentTimeout() time.Duration {
	if o.cfg.AttachmentTimeout > 0 {
		return time.Duration(o.cfg.AttachmentTimeout) * time.Second
	}
	return 2 * time.Minute
}
