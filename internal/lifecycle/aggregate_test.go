package lifecycle

import (
	"testing"

	"github.com/rkoval/taskforge/internal/types"
)

func subtasksOf(statuses ...types.Status) []*types.Subtask {
	subs := make([]*types.Subtask, len(statuses))
	for i, s := range statuses {
		subs[i] = &types.Subtask{ID: string(rune('a' + i)), TaskID: "tf-1", Status: s}
	}
	return subs
}

func TestAggregateWithSubtasks(t *testing.T) {
	tests := []struct {
		name     string
		statuses []types.Status
		want     AggregateStatus
	}{
		{"all approved", []types.Status{types.StatusApproved, types.StatusApproved}, AggregateCompleted},
		{"single approved", []types.Status{types.StatusApproved}, AggregateCompleted},
		{"any in_review wins", []types.Status{types.StatusApproved, types.StatusInReview}, AggregateInReview},
		// in_review is checked before the blocked/returned rule
		{"in_review beats blocked", []types.Status{types.StatusBlocked, types.StatusInReview}, AggregateInReview},
		{"in_review beats returned", []types.Status{types.StatusReturned, types.StatusInReview, types.StatusPending}, AggregateInReview},
		{"blocked", []types.Status{types.StatusPending, types.StatusBlocked}, AggregateBlocked},
		{"returned", []types.Status{types.StatusReturned, types.StatusPending}, AggregateBlocked},
		{"in_progress via started", []types.Status{types.StatusInProgress, types.StatusPending}, AggregateInProgress},
		{"in_progress via completed", []types.Status{types.StatusCompleted, types.StatusPending}, AggregateInProgress},
		{"in_progress via partial approval", []types.Status{types.StatusApproved, types.StatusPending}, AggregateInProgress},
		{"all pending", []types.Status{types.StatusPending, types.StatusPending}, AggregatePending},
		// assigned subtasks alone do not start the parent
		{"assigned only", []types.Status{types.StatusAssigned, types.StatusPending}, AggregatePending},
	}

	task := &types.Task{ID: "tf-1", Status: types.StatusPending}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(task, subtasksOf(tt.statuses...))
			if got != tt.want {
				t.Errorf("Aggregate(%v) = %s, want %s", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestAggregateWithoutSubtasks(t *testing.T) {
	tests := []struct {
		status types.Status
		want   AggregateStatus
	}{
		{types.StatusApproved, AggregateCompleted},
		{types.StatusInReview, AggregateInReview},
		{types.StatusCompleted, AggregateInReview},
		{types.StatusBlocked, AggregateBlocked},
		{types.StatusReturned, AggregateBlocked},
		{types.StatusAssigned, AggregateInProgress},
		{types.StatusPending, AggregatePending},
		{types.StatusInProgress, AggregatePending},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			task := &types.Task{ID: "tf-1", Status: tt.status}
			got := Aggregate(task, nil)
			if got != tt.want {
				t.Errorf("Aggregate(own %s) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestAggregateIdempotent(t *testing.T) {
	task := &types.Task{ID: "tf-1", Status: types.StatusPending}
	subs := subtasksOf(types.StatusApproved, types.StatusInReview, types.StatusBlocked)
	first := Aggregate(task, subs)
	for i := 0; i < 10; i++ {
		if got := Aggregate(task, subs); got != first {
			t.Fatalf("aggregate changed on run %d: %s != %s", i, got, first)
		}
	}
}

func TestComputeProgress(t *testing.T) {
	subs := subtasksOf(
		types.StatusApproved,
		types.StatusApproved,
		types.StatusCompleted,
		types.StatusPending,
	)
	p := ComputeProgress(subs)
	if p.Total != 4 || p.Approved != 2 || p.Delivered != 3 {
		t.Errorf("progress counts = %+v", p)
	}
	if p.ApprovedPct != 0.5 {
		t.Errorf("approved pct = %f, want 0.5", p.ApprovedPct)
	}
	if p.DeliveredPct != 0.75 {
		t.Errorf("delivered pct = %f, want 0.75", p.DeliveredPct)
	}

	empty := ComputeProgress(nil)
	if empty.ApprovedPct != 0 || empty.DeliveredPct != 0 {
		t.Errorf("empty progress = %+v", empty)
	}
}
