package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
	"github.com/rkoval/taskforge/internal/validation"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: "items",
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		var filter types.TaskFilter
		filter.Project, _ = cmd.Flags().GetString("project")
		filter.TitleSearch, _ = cmd.Flags().GetString("search")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status, err := validation.ParseStatus(s)
			if err != nil {
				FatalError("%v", err)
			}
			filter.Status = &status
		}
		if s, _ := cmd.Flags().GetString("priority"); s != "" {
			p, err := validation.ParsePriority(s)
			if err != nil {
				FatalError("%v", err)
			}
			filter.Priority = &p
		}
		if s, _ := cmd.Flags().GetString("assignee"); s != "" {
			filter.Assignee = &s
		}
		if cmd.Flags().Changed("sequential") {
			seq, _ := cmd.Flags().GetBool("sequential")
			filter.Sequential = &seq
		}

		tasks, err := store.ListTasks(rootCtx, filter)
		if err != nil {
			FatalError("failed to list tasks: %v", err)
		}

		withSubtasks, _ := cmd.Flags().GetBool("tree")

		if jsonOutput {
			out := make([]itemSummary, 0, len(tasks))
			for _, t := range tasks {
				out = append(out, taskSummary(t))
			}
			outputJSON(out)
			return
		}

		if len(tasks) == 0 {
			fmt.Println(ui.RenderMuted("No tasks found."))
			return
		}
		for _, t := range tasks {
			subs, err := store.ListSubtasks(rootCtx, types.SubtaskFilter{TaskID: t.ID})
			if err != nil {
				FatalError("failed to list subtasks for %s: %v", t.ID, err)
			}
			if len(subs) > 0 {
				agg := lifecycle.Aggregate(t, subs)
				fmt.Printf("%-14s %-12s %-8s %s %s\n", t.ID, renderAggregate(agg), ui.RenderPriority(t.Priority), t.Title,
					ui.RenderMuted(fmt.Sprintf("(%d subtasks)", len(subs))))
			} else {
				printTaskLine(t)
			}
			if withSubtasks {
				for i, s := range subs {
					printSubtaskLine(s, i == len(subs)-1)
				}
			}
		}
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringP("priority", "p", "", "Filter by priority")
	listCmd.Flags().String("project", "", "Filter by project")
	listCmd.Flags().StringP("assignee", "a", "", "Filter by assignee")
	listCmd.Flags().Bool("sequential", false, "Filter by sequential flag")
	listCmd.Flags().String("search", "", "Filter by title substring")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of tasks (0 = all)")
	listCmd.Flags().BoolP("tree", "t", false, "Show subtasks under each task")
	rootCmd.AddCommand(listCmd)
}
