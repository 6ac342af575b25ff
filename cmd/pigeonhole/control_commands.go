package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pigeonhole/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel the active run",
		Long: "Stop asks the running orchestrator to finish in-flight attachments and " +
			"skip the remaining batches. Stopping when nothing is running is a no-op.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.WasRunning {
					fmt.Fprintln(cmd.OutOrStdout(), "Stop requested; in-flight work will finish")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No run in progress")
				}
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "State:    %s\n", resp.State)
				fmt.Fprintf(out, "Running:  %s\n", yesNo(resp.Running))
				if resp.RunID != "" {
					fmt.Fprintf(out, "Run:      %s\n", resp.RunID)
					fmt.Fprintf(out, "Mailbox:  %s\n", resp.MailboxID)
				}
				if resp.StartedAt != "" {
					fmt.Fprintf(out, "Started:  %s\n", resp.StartedAt)
				}
				fmt.Fprintf(out, "PID:      %d\n", resp.PID)
				return nil
			})
		},
	}
}
