package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/logging"
	"pigeonhole/internal/review"
	"pigeonhole/internal/runstore"
	"pigeonhole/internal/services"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Work the manual review queue",
	}
	reviewCmd.AddCommand(newReviewListCommand(ctx))
	reviewCmd.AddCommand(newReviewShowCommand(ctx))
	reviewCmd.AddCommand(newReviewResolveCommand(ctx))
	return reviewCmd
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <review-id>",
		Short: "Show one review item with the engine's reasoning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRunStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			reviewID := strings.TrimSpace(args[0])
			item, err := store.GetReviewItem(cmd.Context(), reviewID)
			if err != nil {
				return err
			}
			if item == nil {
				return services.Wrap(services.ErrNotFound, "cli", "review show",
					"review item "+reviewID+" not found", nil)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Review %s (%s)\n", item.ID, item.Status)
			fmt.Fprintf(out, "  Filename:   %s\n", item.Filename)
			fmt.Fprintf(out, "  Email:      %s\n", item.EmailID)
			fmt.Fprintf(out, "  Sender:     %s\n", item.Sender)
			fmt.Fprintf(out, "  Subject:    %s\n", item.Subject)
			fmt.Fprintf(out, "  Suggested:  %s", item.SuggestedAssetID)
			if item.SuggestedCategory != "" {
				fmt.Fprintf(out, " (%s)", item.SuggestedCategory)
			}
			fmt.Fprintf(out, " at %.2f\n", item.Confidence)
			if item.Reasoning != "" {
				fmt.Fprintf(out, "  Reasoning:  %s\n", item.Reasoning)
			}
			if item.Status == runstore.ReviewCompleted {
				fmt.Fprintf(out, "  Resolved:   %s (%s) at %s\n", item.ResolvedAssetID,
					item.ResolvedCategory, item.ResolvedAt.Local().Format("2006-01-02 15:04"))
				if item.Notes != "" {
					fmt.Fprintf(out, "  Notes:      %s\n", item.Notes)
				}
			}
			return nil
		},
	}
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List attachments waiting on manual review, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRunStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			router := review.NewRouter(store, logging.NewNop())
			items, err := router.Pending(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Review queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.ID,
					item.Filename,
					item.Sender,
					item.SuggestedAssetID,
					item.SuggestedCategory,
					fmt.Sprintf("%.2f", item.Confidence),
					item.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Review", "Filename", "Sender", "Suggested asset", "Suggested category", "Conf", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newReviewResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		assetID  string
		category string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "resolve <review-id>",
		Short: "Resolve a review item and feed the outcome back into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runStore, err := runstore.Open(cfg.Paths.DataDir)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer runStore.Close()
			knowledgeStore, err := knowledge.Open(cfg.Paths.DataDir)
			if err != nil {
				return fmt.Errorf("open knowledge store: %w", err)
			}
			defer knowledgeStore.Close()

			router := review.NewRouter(runStore, logging.NewNop(),
				review.WithFeedback(knowledgeStore))

			reviewID := strings.TrimSpace(args[0])
			if err := router.SubmitDisposition(cmd.Context(), reviewID, assetID, category, notes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s as asset %s", reviewID, assetID)
			if category != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", category)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&assetID, "asset", "", "Asset the attachment belongs to (required)")
	cmd.Flags().StringVar(&category, "category", "", "Document category to record")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form reviewer notes")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}
