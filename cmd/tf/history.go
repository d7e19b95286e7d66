package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history <id>",
	GroupID: "items",
	Short:   "Show an item's status history",
	Long: `Prints the item's status transitions, newest first. System-triggered
changes (parent auto-approval) show "system" as the actor. Cancelled
transitions (review cancel, unblock) do not appear: their entries were
retracted when the cancellation happened.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := store.ListHistory(rootCtx, ref, limit)
		if err != nil {
			FatalError("failed to list history: %v", err)
		}

		if jsonOutput {
			outputJSON(entries)
			return
		}

		if len(entries) == 0 {
			fmt.Println(ui.RenderMuted("No history."))
			return
		}
		for _, e := range entries {
			who := "system"
			if e.ChangedBy != nil {
				who = *e.ChangedBy
			}
			line := fmt.Sprintf("%s  %s -> %s  %s",
				ui.RenderMuted(e.ChangedAt.Format("2006-01-02 15:04")),
				ui.RenderStatus(e.PreviousStatus), ui.RenderStatus(e.NewStatus),
				who)
			if e.Metadata != nil && e.Metadata.Reason != "" {
				line += ui.RenderMuted("  (" + e.Metadata.Reason + ")")
			}
			fmt.Println(line)
		}
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 0, "Maximum entries (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
