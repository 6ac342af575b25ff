package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pigeonhole/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point mailbox.dir at your mail archive before running Pigeonhole.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults are in effect")
			}
			fmt.Fprintf(out, "  Mailbox dir:           %s\n", cfg.Mailbox.Dir)
			fmt.Fprintf(out, "  Default mailbox:       %s\n", cfg.Mailbox.DefaultMailbox)
			fmt.Fprintf(out, "  Data dir:              %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "  Log dir:               %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "  Identification thresh: %.2f\n", cfg.Matching.IdentificationThreshold)
			fmt.Fprintf(out, "  Category threshold:    %.2f\n", cfg.Matching.CategoryThreshold)
			fmt.Fprintf(out, "  Batch size:            %d\n", cfg.Processing.BatchSize)
			fmt.Fprintf(out, "  Email concurrency:     %d\n", cfg.Processing.EmailConcurrency)
			fmt.Fprintf(out, "  Attachment concurrency:%d\n", cfg.Processing.AttachmentConcurrency)
			fmt.Fprintf(out, "  Attachment timeout:    %ds\n", cfg.Processing.AttachmentTimeout)
			fmt.Fprintf(out, "  Look-back days:        %d\n", cfg.Processing.LookBackDays)
			return nil
		},
	}
}
