package main

import (
	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/ui"
)

var returnCmd = &cobra.Command{
	Use:     "return <id>",
	Aliases: []string{"reject"},
	GroupID: "review",
	Short:   "Return an item from review for rework",
	Long: `Returns an in_review item to its assignee with feedback. A feedback
comment is required: a return without one gives the assignee nothing to
act on and is rejected.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		comment, _ := cmd.Flags().GetString("message")

		req := lifecycle.Request{Actor: actor, Comment: comment}
		if err := orch.Return(rootCtx, ref, req); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"id": ref.ID, "status": "returned"})
			return
		}
		debug.PrintNormal("%s Returned %s for rework\n", ui.RenderWarn("↩"), ref.ID)
	},
}

func init() {
	returnCmd.Flags().StringP("message", "m", "", "Feedback comment (required)")
	rootCmd.AddCommand(returnCmd)
}
