package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pigeonhole/internal/classify"
	"pigeonhole/internal/config"
	"pigeonhole/internal/identify"
	"pigeonhole/internal/ipc"
	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/mailbox"
	"pigeonhole/internal/pipeline"
	"pigeonhole/internal/review"
	"pigeonhole/internal/runstore"
	"pigeonhole/internal/textmatch"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var mailboxID string
	var lookBackDays int
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a mailbox in the foreground",
		Long: "Run lists recent emails with attachments, identifies each attachment " +
			"against known assets, classifies it, and records the results. A control " +
			"socket is served for `pigeonhole stop` and `pigeonhole status` while the " +
			"run is active.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if mailboxID == "" {
				mailboxID = cfg.Mailbox.DefaultMailbox
			}

			logger, err := logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			knowledgeStore, err := knowledge.Open(cfg.Paths.DataDir)
			if err != nil {
				return fmt.Errorf("open knowledge store: %w", err)
			}
			defer knowledgeStore.Close()

			runStore, err := runstore.Open(cfg.Paths.DataDir)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer runStore.Close()

			orch := buildOrchestrator(cfg, runStore, knowledgeStore, logger)

			server, err := ipc.NewServer(cmd.Context(), ctx.socketPath(), orch, logger)
			if err != nil {
				return fmt.Errorf("start control socket: %w", err)
			}
			server.Serve()
			defer server.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				fmt.Fprintln(cmd.ErrOrStderr(), "interrupt received, finishing in-flight work...")
				orch.Stop()
			}()

			req := pipeline.RunRequest{
				MailboxID:      mailboxID,
				ForceReprocess: force,
			}
			if lookBackDays > 0 {
				req.LookBack = time.Duration(lookBackDays) * 24 * time.Hour
			}

			result, runErr := orch.Run(cmd.Context(), req)
			if result != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderRunSummary(result, shouldColorize(out)))
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&mailboxID, "mailbox", "m", "", "Mailbox to process (defaults to the configured mailbox)")
	cmd.Flags().IntVar(&lookBackDays, "look-back", 0, "Days of email history to list (defaults to the configured window)")
	cmd.Flags().BoolVar(&force, "force-reprocess", false, "Reprocess attachments already recorded in the dedup ledger")
	return cmd
}

func buildOrchestrator(cfg *config.Config, runStore *runstore.Store, knowledgeStore *knowledge.Store, logger *slog.Logger) *pipeline.Orchestrator {
	matchCfg := textmatch.Config{
		ExactFuzzyThreshold: cfg.Matching.ExactFuzzyThreshold,
		PartialThreshold:    cfg.Matching.PartialThreshold,
	}
	identifier := identify.NewEngine(identify.Config{
		Threshold:        cfg.Matching.IdentificationThreshold,
		ReviewConfidence: cfg.Matching.ReviewConfidence,
		Match:            matchCfg,
	}, logging.NewComponentLogger(logger, "identify"),
		identify.WithKnowledgeProvider(knowledgeStore),
		identify.WithRuleProvider(knowledgeStore),
		identify.WithHistoryProvider(knowledgeStore))

	classifier := classify.NewEngine(classify.Config{
		Threshold:          cfg.Matching.CategoryThreshold,
		FallbackConfidence: cfg.Matching.FallbackCategoryConfidence,
	}, logging.NewComponentLogger(logger, "classify"),
		classify.WithKnowledgeProvider(knowledgeStore),
		classify.WithRuleProvider(knowledgeStore))

	router := review.NewRouter(runStore, logging.NewComponentLogger(logger, "review"),
		review.WithFeedback(knowledgeStore))

	connector := mailbox.NewDirConnector(cfg.Mailbox.Dir)
	return pipeline.New(cfg, runStore, connector, identifier, classifier,
		logging.NewComponentLogger(logger, "pipeline"),
		pipeline.WithReviewRouter(router),
		pipeline.WithRuleProvider(knowledgeStore))
}
