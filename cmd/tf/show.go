package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/timeparsing"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"get"},
	GroupID: "items",
	Short:   "Show a task or subtask in detail",
	Args:    cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		if ref.Kind == types.KindTask {
			showTask(ref.ID)
			return
		}
		showSubtask(ref.ID)
	},
}

func showTask(id string) {
	task, err := store.GetTask(rootCtx, id)
	if err != nil {
		FatalError("task %s: %v", id, err)
	}
	subs, err := store.ListSubtasks(rootCtx, types.SubtaskFilter{TaskID: id})
	if err != nil {
		FatalError("failed to list subtasks: %v", err)
	}

	agg := lifecycle.Aggregate(task, subs)
	progress := lifecycle.ComputeProgress(subs)

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"task":             task,
			"subtasks":         subs,
			"aggregate_status": displayAggregate(agg),
			"progress":         progress,
		})
		return
	}

	fmt.Printf("%s %s\n", ui.RenderAccent(task.ID), task.Title)
	fmt.Println(ui.RenderSeparator())
	fmt.Printf("Status:    %s", renderAggregate(agg))
	if len(subs) > 0 {
		fmt.Printf(" %s", ui.RenderMuted("(from subtasks)"))
	}
	fmt.Println()
	fmt.Printf("Priority:  %s\n", ui.RenderPriority(task.Priority))
	if task.Project != "" {
		fmt.Printf("Project:   %s\n", task.Project)
	}
	fmt.Printf("Estimate:  %s\n", timeparsing.FormatMinutes(task.EstimatedMinutes))
	if task.Sequential {
		fmt.Printf("Ordering:  %s\n", "sequential")
	}
	if len(task.Assignees) > 0 {
		fmt.Printf("Assignees: %v\n", task.Assignees)
	}
	printDates(task.StartDate, task.Deadline)
	printNote(task.Notes)
	printFeedback(task.Feedback)
	if task.Description != "" {
		fmt.Printf("\n%s\n", task.Description)
	}

	if len(subs) > 0 {
		fmt.Printf("\n%s %s\n", ui.RenderCategory("subtasks"),
			ui.RenderMuted(fmt.Sprintf("%d/%d approved, %d/%d delivered",
				progress.Approved, progress.Total, progress.Delivered, progress.Total)))
		for i, s := range subs {
			printSubtaskLine(s, i == len(subs)-1)
		}
	}
}

func showSubtask(id string) {
	sub, err := store.GetSubtask(rootCtx, id)
	if err != nil {
		FatalError("subtask %s: %v", id, err)
	}

	if jsonOutput {
		outputJSON(sub)
		return
	}

	fmt.Printf("%s %s\n", ui.RenderAccent(sub.ID), sub.Title)
	fmt.Println(ui.RenderSeparator())
	fmt.Printf("Parent:    %s\n", sub.TaskID)
	fmt.Printf("Status:    %s\n", ui.RenderStatus(sub.Status))
	if sub.SequenceOrder != nil {
		fmt.Printf("Sequence:  level %d\n", *sub.SequenceOrder)
	}
	if sub.Assignee != "" {
		fmt.Printf("Assignee:  %s\n", sub.Assignee)
	}
	fmt.Printf("Estimate:  %s\n", timeparsing.FormatMinutes(sub.EstimatedMinutes))
	printDates(sub.StartDate, sub.Deadline)
	printNote(sub.Notes)
	printFeedback(sub.Feedback)
	if sub.Description != "" {
		fmt.Printf("\n%s\n", sub.Description)
	}
}

func printDates(start, deadline *time.Time) {
	if start != nil {
		fmt.Printf("Start:     %s\n", start.Format("2006-01-02"))
	}
	if deadline != nil {
		fmt.Printf("Deadline:  %s\n", deadline.Format("2006-01-02"))
	}
}

func printNote(n *types.Note) {
	if n == nil {
		return
	}
	switch n.Kind {
	case types.NoteBlockReason:
		fmt.Printf("Blocked:   %s\n", ui.RenderFail(n.Reason))
	case types.NoteDeliveryComment:
		fmt.Printf("Delivery:  %s\n", n.Comment)
	case types.NoteTimeBreakdown:
		tb := n.Breakdown
		fmt.Printf("Time:      %s initial", timeparsing.FormatMinutes(tb.InitialMinutes))
		for _, r := range tb.Rework {
			fmt.Printf(" + %s rework", timeparsing.FormatMinutes(r.Minutes))
		}
		fmt.Printf(" = %s\n", timeparsing.FormatMinutes(tb.TotalMinutes()))
	}
}

func printFeedback(f *types.Feedback) {
	if f == nil {
		return
	}
	line := "Feedback:  "
	if f.Rating != 0 {
		line += fmt.Sprintf("%d/5 ", f.Rating)
	}
	if f.Comment != "" {
		line += fmt.Sprintf("%q ", f.Comment)
	}
	if f.Reviewer != "" {
		line += ui.RenderMuted("by " + f.Reviewer)
	}
	fmt.Println(line)
}

func init() {
	rootCmd.AddCommand(showCmd)
}
