package main

import (
	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/timeparsing"
)

var logCmd = &cobra.Command{
	Use:     "log <id> <duration>",
	GroupID: "work",
	Short:   "Log a work session against an item",
	Long: `Records a work session without completing the item. Logged work marks
the assignment as genuinely worked: reassignment and unblocking never
delete assignment rows that have sessions.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		minutes, err := timeparsing.ParseWorkMinutes(args[1])
		if err != nil {
			FatalError("invalid duration: %v", err)
		}
		note, _ := cmd.Flags().GetString("message")

		if err := manager.LogWork(rootCtx, actor, ref, minutes, note); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"id": ref.ID, "minutes": minutes})
			return
		}
		okf("Logged %s on %s", timeparsing.FormatMinutes(minutes), ref.ID)
	},
}

func init() {
	logCmd.Flags().StringP("message", "m", "", "Session note")
	rootCmd.AddCommand(logCmd)
}
