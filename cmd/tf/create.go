package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/config"
	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/idgen"
	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/timeparsing"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
	"github.com/rkoval/taskforge/internal/validation"
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	Aliases: []string{"new"},
	GroupID: "items",
	Short:   "Create a new task",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title := args[0]

		task := &types.Task{
			Title:     title,
			CreatedAt: time.Now(),
		}
		task.Description, _ = cmd.Flags().GetString("description")
		task.Project, _ = cmd.Flags().GetString("project")
		task.Sequential, _ = cmd.Flags().GetBool("sequential")
		task.Assignees, _ = cmd.Flags().GetStringSlice("assignee")

		priorityStr, _ := cmd.Flags().GetString("priority")
		if priorityStr != "" {
			p, err := validation.ParsePriority(priorityStr)
			if err != nil {
				FatalError("%v", err)
			}
			task.Priority = p
		}

		estimate, _ := cmd.Flags().GetString("estimate")
		minutes, err := timeparsing.ParseWorkMinutes(estimate)
		if err != nil {
			FatalError("invalid --estimate: %v", err)
		}
		task.EstimatedMinutes = minutes

		now := time.Now()
		if s, _ := cmd.Flags().GetString("start"); s != "" {
			t, err := timeparsing.ParseDate(s, now)
			if err != nil {
				FatalError("invalid --start: %v", err)
			}
			task.StartDate = &t
		}
		if s, _ := cmd.Flags().GetString("deadline"); s != "" {
			t, err := timeparsing.ParseDate(s, now)
			if err != nil {
				FatalError("invalid --deadline: %v", err)
			}
			task.Deadline = &t
		}

		task.SetDefaults()

		prefix := config.GetString(config.KeyIDPrefix)
		if prefix == "" {
			prefix = idgen.DefaultPrefix
		}
		task.ID = allocateTaskID(prefix, title)

		if err := task.Validate(); err != nil {
			FatalError("%v", err)
		}
		if err := store.CreateTask(rootCtx, task); err != nil {
			FatalError("failed to create task: %v", err)
		}

		if jsonOutput {
			outputJSON(task)
			return
		}
		okf("Created %s: %s", ui.RenderAccent(task.ID), task.Title)
		if task.Sequential {
			debug.PrintlnNormal(ui.RenderMuted("  sequential: subtask levels unlock in order"))
		}
	},
}

// allocateTaskID hashes title, creator, and timestamp into a short ID,
// bumping the nonce until the ID is unused.
func allocateTaskID(prefix, title string) string {
	now := time.Now()
	for nonce := 0; ; nonce++ {
		id := idgen.GenerateTaskID(prefix, title, actor, now, nonce)
		_, err := store.GetTask(rootCtx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return id
		}
		if err != nil {
			FatalError("failed to check ID %s: %v", id, err)
		}
	}
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "Task description")
	createCmd.Flags().StringP("priority", "p", "", "Priority: low, medium, or high")
	createCmd.Flags().String("project", "", "Project name")
	createCmd.Flags().StringP("estimate", "e", "60", "Estimated effort (e.g. 90, 2h, 1h30m)")
	createCmd.Flags().StringSliceP("assignee", "a", nil, "Assignee (only meaningful for tasks without subtasks)")
	createCmd.Flags().Bool("sequential", false, "Subtask levels unlock in sequence order")
	createCmd.Flags().String("start", "", "Start date (2006-01-02, +3d, or natural language)")
	createCmd.Flags().String("deadline", "", "Deadline (2006-01-02, +3d, or natural language)")
	rootCmd.AddCommand(createCmd)
}
