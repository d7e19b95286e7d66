package main

import (
	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/timeparsing"
)

var completeCmd = &cobra.Command{
	Use:     "complete <id>",
	Aliases: []string{"done"},
	GroupID: "work",
	Short:   "Complete an item selected for today",
	Long: `Marks the item completed and records the actual duration on today's
assignment. Requires an outcome note and a positive duration; the item
must be in the acting user's plan for today.

Completing an item again after it was returned accumulates the new
duration as rework time rather than overwriting the original.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])

		note, _ := cmd.Flags().GetString("message")
		durStr, _ := cmd.Flags().GetString("duration")
		if durStr == "" {
			FatalError("completion requires --duration")
		}
		minutes, err := timeparsing.ParseWorkMinutes(durStr)
		if err != nil {
			FatalError("invalid --duration: %v", err)
		}

		if err := manager.Complete(rootCtx, actor, ref, note, minutes); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"id": ref.ID, "status": "completed", "minutes": minutes})
			return
		}
		okf("Completed %s (%s)", ref.ID, timeparsing.FormatMinutes(minutes))
	},
}

func init() {
	completeCmd.Flags().StringP("message", "m", "", "Outcome note (required)")
	completeCmd.Flags().StringP("duration", "d", "", "Actual time spent (e.g. 90, 1h30m; required)")
	rootCmd.AddCommand(completeCmd)
}
