package main

import (
	"testing"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/types"
)

func TestDisplayAggregate(t *testing.T) {
	tests := []struct {
		in   lifecycle.AggregateStatus
		want string
	}{
		{lifecycle.AggregateCompleted, "main_completed"},
		{lifecycle.AggregateInReview, "in_review"},
		{lifecycle.AggregateBlocked, "blocked"},
		{lifecycle.AggregatePending, "pending"},
		{lifecycle.AggregateInProgress, "in_progress"},
	}
	for _, tt := range tests {
		if got := displayAggregate(tt.in); got != tt.want {
			t.Errorf("displayAggregate(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfirmDeclinesInQuietMode(t *testing.T) {
	debug.SetQuiet(true)
	defer debug.SetQuiet(false)
	if confirm("delete everything?") {
		t.Error("confirm returned true in quiet mode")
	}
}

func TestSubtaskSummaryAssignee(t *testing.T) {
	s := &types.Subtask{ID: "tf-abc123.1", TaskID: "tf-abc123", Title: "x", EstimatedMinutes: 30}
	if got := subtaskSummary(s).Assignees; got != nil {
		t.Errorf("expected no assignees, got %v", got)
	}
	s.Assignee = "maria"
	sum := subtaskSummary(s)
	if len(sum.Assignees) != 1 || sum.Assignees[0] != "maria" {
		t.Errorf("expected [maria], got %v", sum.Assignees)
	}
}
