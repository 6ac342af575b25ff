package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/services"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage known assets",
	}
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsAddCommand(ctx))
	assetsCmd.AddCommand(newAssetsShowCommand(ctx))
	assetsCmd.AddCommand(newAssetsImportCommand(ctx))
	return assetsCmd
}

func newAssetsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed-file>",
		Short: "Bulk-load assets, sender mappings and categories from a TOML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := knowledge.LoadSeed(args[0])
			if err != nil {
				return err
			}
			store, err := openKnowledgeStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ApplySeed(cmd.Context(), seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d asset(s) and %d category set(s)\n",
				len(seed.Assets), len(seed.Categories))
			return nil
		},
	}
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assets in the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openKnowledgeStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			assets, err := store.ListAssets(cmd.Context())
			if err != nil {
				return err
			}
			if len(assets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No assets configured; add one with `pigeonhole assets add`")
				return nil
			}

			rows := make([][]string, 0, len(assets))
			for _, asset := range assets {
				threshold := ""
				if asset.Threshold > 0 {
					threshold = fmt.Sprintf("%.2f", asset.Threshold)
				}
				rows = append(rows, []string{
					asset.ID,
					asset.Name,
					asset.Type,
					strings.Join(asset.Keywords, ", "),
					threshold,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Asset", "Name", "Type", "Keywords", "Threshold"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newAssetsAddCommand(ctx *commandContext) *cobra.Command {
	var (
		name      string
		assetType string
		keywords  []string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "add <asset-id>",
		Short: "Add or update an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openKnowledgeStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			asset := knowledge.Asset{
				ID:        strings.TrimSpace(args[0]),
				Name:      strings.TrimSpace(name),
				Type:      strings.TrimSpace(assetType),
				Keywords:  keywords,
				Threshold: threshold,
			}
			if asset.ID == "" || asset.Name == "" {
				return services.Wrap(services.ErrValidation, "cli", "assets add",
					"asset id and --name are required", nil)
			}
			if err := store.UpsertAsset(cmd.Context(), asset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved asset %s (%s)\n", asset.ID, asset.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Canonical asset name (required)")
	cmd.Flags().StringVar(&assetType, "type", "fund", "Asset type, drives allowed categories")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Alternate identifiers and match keywords")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Per-asset identification threshold override")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAssetsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <asset-id>",
		Short: "Show one asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openKnowledgeStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			assetID := strings.TrimSpace(args[0])
			asset, err := store.GetAsset(cmd.Context(), assetID)
			if err != nil {
				return err
			}
			if asset == nil {
				return services.Wrap(services.ErrNotFound, "cli", "assets show",
					"asset "+assetID+" not found", nil)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Asset %s\n", asset.ID)
			fmt.Fprintf(out, "  Name:      %s\n", asset.Name)
			fmt.Fprintf(out, "  Type:      %s\n", asset.Type)
			fmt.Fprintf(out, "  Keywords:  %s\n", strings.Join(asset.Keywords, ", "))
			if asset.Threshold > 0 {
				fmt.Fprintf(out, "  Threshold: %.2f\n", asset.Threshold)
			}
			return nil
		},
	}
}

func openKnowledgeStore(ctx *commandContext) (*knowledge.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := knowledge.Open(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	return store, nil
}
