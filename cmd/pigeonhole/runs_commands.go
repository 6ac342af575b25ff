package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pigeonhole/internal/runstore"
	"pigeonhole/internal/services"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRunStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.RunID,
					run.MailboxID,
					string(run.Status),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(run.EmailsFound),
					strconv.Itoa(run.EmailsProcessed),
					strconv.Itoa(run.Errors),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Mailbox", "Status", "Started", "Found", "Processed", "Errors"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-email details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRunStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runID := strings.TrimSpace(args[0])
			run, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if run == nil {
				return services.Wrap(services.ErrNotFound, "cli", "runs show",
					"run "+runID+" not found", nil)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderRunSummary(run, shouldColorize(out)))
			if len(run.Details) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(run.Details))
			for _, detail := range run.Details {
				rows = append(rows, []string{
					detail.EmailID,
					strconv.Itoa(detail.AttachmentsProcessed),
					strconv.Itoa(detail.AttachmentsClassified),
					strconv.Itoa(detail.AttachmentsSkipped),
					strconv.Itoa(detail.Errors),
					strings.Join(detail.NeedsReview, ", "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Email", "Processed", "Classified", "Skipped", "Errors", "Needs review"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func openRunStore(ctx *commandContext) (*runstore.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := runstore.Open(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return store, nil
}
