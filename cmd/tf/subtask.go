package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/idgen"
	"github.com/rkoval/taskforge/internal/timeparsing"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
	"github.com/rkoval/taskforge/internal/validation"
)

var subtaskCmd = &cobra.Command{
	Use:     "subtask <task-id> <title>",
	Aliases: []string{"sub"},
	GroupID: "items",
	Short:   "Add a subtask to an existing task",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		taskID, title := args[0], args[1]

		parent, err := store.GetTask(rootCtx, taskID)
		if err != nil {
			FatalError("task %s: %v", taskID, err)
		}

		siblings, err := store.ListSubtasks(rootCtx, types.SubtaskFilter{TaskID: taskID})
		if err != nil {
			FatalError("failed to list subtasks: %v", err)
		}

		sub := &types.Subtask{
			ID:        idgen.GenerateSubtaskID(taskID, len(siblings)),
			TaskID:    taskID,
			Title:     title,
			CreatedAt: time.Now(),
		}
		sub.Description, _ = cmd.Flags().GetString("description")
		sub.Assignee, _ = cmd.Flags().GetString("assignee")

		seqStr, _ := cmd.Flags().GetString("seq")
		seq, err := validation.ParseSequenceOrder(seqStr)
		if err != nil {
			FatalError("invalid --seq: %v", err)
		}
		sub.SequenceOrder = seq

		estimate, _ := cmd.Flags().GetString("estimate")
		minutes, err := timeparsing.ParseWorkMinutes(estimate)
		if err != nil {
			FatalError("invalid --estimate: %v", err)
		}
		sub.EstimatedMinutes = minutes

		now := time.Now()
		if s, _ := cmd.Flags().GetString("start"); s != "" {
			t, err := timeparsing.ParseDate(s, now)
			if err != nil {
				FatalError("invalid --start: %v", err)
			}
			sub.StartDate = &t
		}
		if s, _ := cmd.Flags().GetString("deadline"); s != "" {
			t, err := timeparsing.ParseDate(s, now)
			if err != nil {
				FatalError("invalid --deadline: %v", err)
			}
			sub.Deadline = &t
		}

		sub.SetDefaults()
		if err := sub.Validate(); err != nil {
			FatalError("%v", err)
		}
		if err := store.CreateSubtask(rootCtx, sub); err != nil {
			FatalError("failed to create subtask: %v", err)
		}

		if jsonOutput {
			outputJSON(sub)
			return
		}
		okf("Created %s under %s: %s", ui.RenderAccent(sub.ID), parent.ID, sub.Title)
		if sub.SequenceOrder == nil && parent.Sequential {
			debug.PrintlnNormal(ui.RenderMuted("  no --seq given: subtask is unordered and never gated"))
		}
	},
}

func init() {
	subtaskCmd.Flags().StringP("description", "d", "", "Subtask description")
	subtaskCmd.Flags().StringP("assignee", "a", "", "Assignee")
	subtaskCmd.Flags().String("seq", "", "Sequence level (>= 1) for sequential parents")
	subtaskCmd.Flags().StringP("estimate", "e", "30", "Estimated effort (e.g. 90, 2h, 1h30m)")
	subtaskCmd.Flags().String("start", "", "Start date")
	subtaskCmd.Flags().String("deadline", "", "Deadline")
	rootCmd.AddCommand(subtaskCmd)
}
