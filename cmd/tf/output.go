package main

import (
	"fmt"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/timeparsing"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
	"github.com/rkoval/taskforge/internal/validation"
)

// okf prints a checkmark success line. Suppressed in quiet mode.
func okf(format string, args ...interface{}) {
	debug.PrintNormal(ui.RenderPass("✓")+" "+format+"\n", args...)
}

// resolveRef parses a positional ID argument into an item reference.
// Dotted IDs (tf-a1b2c3.2) are subtasks, everything else is a task.
func resolveRef(arg string) types.ItemRef {
	ref, err := validation.RefFromID(arg)
	if err != nil {
		FatalError("%v", err)
	}
	return ref
}

// displayAggregate maps the computed parent status to its display name.
// A fully approved subtask set shows as main_completed so it cannot be
// confused with a single subtask's completed status.
func displayAggregate(s lifecycle.AggregateStatus) string {
	if s == lifecycle.AggregateCompleted {
		return "main_completed"
	}
	return string(s)
}

// renderAggregate styles the aggregate display name with the palette used
// for real statuses.
func renderAggregate(s lifecycle.AggregateStatus) string {
	switch s {
	case lifecycle.AggregateCompleted:
		return ui.RenderPass(displayAggregate(s))
	case lifecycle.AggregateBlocked:
		return ui.RenderFail(displayAggregate(s))
	case lifecycle.AggregateInReview:
		return ui.RenderWarn(displayAggregate(s))
	case lifecycle.AggregateInProgress:
		return ui.RenderAccent(displayAggregate(s))
	default:
		return ui.RenderMuted(displayAggregate(s))
	}
}

// itemSummary is the JSON shape shared by list/show output.
type itemSummary struct {
	ID               string   `json:"id"`
	Kind             string   `json:"kind"`
	Title            string   `json:"title"`
	Status           string   `json:"status"`
	Priority         string   `json:"priority,omitempty"`
	Project          string   `json:"project,omitempty"`
	Assignees        []string `json:"assignees,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	SequenceOrder    *int     `json:"sequence_order,omitempty"`
}

func taskSummary(t *types.Task) itemSummary {
	return itemSummary{
		ID:               t.ID,
		Kind:             string(types.KindTask),
		Title:            t.Title,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		Project:          t.Project,
		Assignees:        t.Assignees,
		EstimatedMinutes: t.EstimatedMinutes,
	}
}

func subtaskSummary(s *types.Subtask) itemSummary {
	var assignees []string
	if s.Assignee != "" {
		assignees = []string{s.Assignee}
	}
	return itemSummary{
		ID:               s.ID,
		Kind:             string(types.KindSubtask),
		Title:            s.Title,
		Status:           string(s.Status),
		Assignees:        assignees,
		EstimatedMinutes: s.EstimatedMinutes,
		SequenceOrder:    s.SequenceOrder,
	}
}

// printTaskLine renders one task row for list output.
func printTaskLine(t *types.Task) {
	est := timeparsing.FormatMinutes(t.EstimatedMinutes)
	line := fmt.Sprintf("%-14s %-12s %-8s %s", t.ID, ui.RenderStatus(t.Status), ui.RenderPriority(t.Priority), t.Title)
	if t.Project != "" {
		line += ui.RenderMuted(fmt.Sprintf("  [%s]", t.Project))
	}
	line += ui.RenderMuted(fmt.Sprintf("  (%s)", est))
	fmt.Println(line)
}

// printSubtaskLine renders one subtask row, indented under its parent.
func printSubtaskLine(s *types.Subtask, last bool) {
	branch := ui.TreeChild
	if last {
		branch = ui.TreeLast
	}
	seq := ""
	if s.SequenceOrder != nil {
		seq = ui.RenderMuted(fmt.Sprintf(" seq:%d", *s.SequenceOrder))
	}
	who := ""
	if s.Assignee != "" {
		who = ui.RenderMuted(" @" + s.Assignee)
	}
	fmt.Printf("%s%s %-12s %-12s %s%s%s\n", ui.TreeIndent, branch, s.ID, ui.RenderStatus(s.Status), s.Title, seq, who)
}
