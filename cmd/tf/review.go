package main

import (
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:     "review <id>",
	GroupID: "review",
	Short:   "Send a completed item to review",
	Args:    cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		if err := orch.RequestReview(rootCtx, ref, actor); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"id": ref.ID, "status": "in_review"})
			return
		}
		okf("%s is now in review", ref.ID)
	},
}

var reviewCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending review",
	Long: `Moves an in_review item back to completed. The review request is
treated as if it never happened: its history entry is retracted instead
of a new entry being appended.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		if err := orch.CancelReview(rootCtx, ref, actor); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"id": ref.ID, "status": "completed"})
			return
		}
		okf("Review cancelled for %s", ref.ID)
	},
}

func init() {
	reviewCmd.AddCommand(reviewCancelCmd)
	rootCmd.AddCommand(reviewCmd)
}
