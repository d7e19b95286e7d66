package main

import (
	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/idgen"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
	"github.com/rkoval/taskforge/internal/validation"
)

var approveCmd = &cobra.Command{
	Use:     "approve <id>",
	GroupID: "review",
	Short:   "Approve an item in review",
	Long: `Approves an in_review item, optionally recording a rating (1-5) and a
comment. Approving the last subtask of a task approves the parent too,
and on sequential tasks unlocks the next subtask level.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])

		ratingStr, _ := cmd.Flags().GetString("rating")
		rating, err := validation.ParseRating(ratingStr)
		if err != nil {
			FatalError("%v", err)
		}
		comment, _ := cmd.Flags().GetString("message")

		req := lifecycle.Request{Actor: actor, Comment: comment, Rating: rating}
		if err := orch.Approve(rootCtx, ref, req); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"id": ref.ID, "status": "approved", "rating": rating})
			return
		}
		if rating != 0 {
			okf("Approved %s (%d/5)", ref.ID, rating)
		} else {
			okf("Approved %s", ref.ID)
		}

		if ref.Kind == types.KindSubtask {
			reportParentState(ref.ID)
		}
	},
}

// reportParentState prints the parent's aggregate after a subtask approval
// so the reviewer sees cascades (auto-approval, unlocks) immediately.
func reportParentState(subtaskID string) {
	task, err := store.GetTask(rootCtx, idgen.ParentID(subtaskID))
	if err != nil {
		return
	}
	subs, err := store.ListSubtasks(rootCtx, types.SubtaskFilter{TaskID: task.ID})
	if err != nil {
		return
	}
	agg := lifecycle.Aggregate(task, subs)
	debug.PrintNormal("  %s %s\n", ui.RenderMuted(task.ID+":"), renderAggregate(agg))
}

func init() {
	approveCmd.Flags().StringP("rating", "r", "", "Quality rating 1-5")
	approveCmd.Flags().StringP("message", "m", "", "Review comment")
	rootCmd.AddCommand(approveCmd)
}
