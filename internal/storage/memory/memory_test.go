package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

func TestTaskCRUD(t *testing.T) {
	store := New()
	ctx := context.Background()

	task := &types.Task{
		ID:               "tf-1",
		Title:            "Prepare kickoff deck",
		EstimatedMinutes: 60,
		Status:           types.StatusPending,
		Priority:         types.PriorityHigh,
		CreatedAt:        time.Now(),
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := store.GetTask(ctx, "tf-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "Prepare kickoff deck" {
		t.Errorf("Title = %q", got.Title)
	}

	// Mutating the returned copy must not leak into the store.
	got.Title = "mutated"
	again, _ := store.GetTask(ctx, "tf-1")
	if again.Title != "Prepare kickoff deck" {
		t.Errorf("store leaked a shared pointer")
	}

	err = store.UpdateTask(ctx, "tf-1", map[string]interface{}{
		"status":    types.StatusInProgress,
		"assignees": []string{"maria"},
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, _ = store.GetTask(ctx, "tf-1")
	if got.Status != types.StatusInProgress {
		t.Errorf("Status = %s", got.Status)
	}
	if len(got.Assignees) != 1 || got.Assignees[0] != "maria" {
		t.Errorf("Assignees = %v", got.Assignees)
	}

	if err := store.DeleteTask(ctx, "tf-1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := store.GetTask(ctx, "tf-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSubtaskRequiresParent(t *testing.T) {
	store := New()
	ctx := context.Background()

	sub := &types.Subtask{ID: "tf-1.1", TaskID: "tf-1", Title: "Draft outline", EstimatedMinutes: 30, Status: types.StatusPending}
	if err := store.CreateSubtask(ctx, sub); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for orphan subtask, got %v", err)
	}
}

func TestListSubtasksOrdering(t *testing.T) {
	store := New()
	ctx := context.Background()

	task := &types.Task{ID: "tf-1", Title: "Site migration", EstimatedMinutes: 60, Status: types.StatusPending, CreatedAt: time.Now()}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	two, one := 2, 1
	base := time.Now()
	subs := []*types.Subtask{
		{ID: "tf-1.3", TaskID: "tf-1", Title: "c", EstimatedMinutes: 10, Status: types.StatusPending, CreatedAt: base},
		{ID: "tf-1.2", TaskID: "tf-1", Title: "b", EstimatedMinutes: 10, Status: types.StatusPending, SequenceOrder: &two, CreatedAt: base.Add(time.Second)},
		{ID: "tf-1.1", TaskID: "tf-1", Title: "a", EstimatedMinutes: 10, Status: types.StatusPending, SequenceOrder: &one, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, s := range subs {
		if err := store.CreateSubtask(ctx, s); err != nil {
			t.Fatalf("CreateSubtask %s: %v", s.ID, err)
		}
	}

	got, err := store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: "tf-1"})
	if err != nil {
		t.Fatalf("ListSubtasks: %v", err)
	}
	want := []string{"tf-1.1", "tf-1.2", "tf-1.3"}
	if len(got) != len(want) {
		t.Fatalf("got %d subtasks, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s (ordered levels first, unordered last)", i, got[i].ID, id)
		}
	}
}

func TestUpsertAssignmentReplaces(t *testing.T) {
	store := New()
	ctx := context.Background()

	key := types.AssignmentKey{User: "maria", Date: "2026-08-29", Kind: types.KindTask, ItemID: "tf-1"}
	first := &types.WorkAssignment{Key: key, Status: types.AssignmentAssigned, EstimatedMinutes: 60}
	if err := store.UpsertAssignment(ctx, first); err != nil {
		t.Fatalf("UpsertAssignment: %v", err)
	}

	minutes := 45
	second := &types.WorkAssignment{Key: key, Status: types.AssignmentCompleted, EstimatedMinutes: 60, ActualMinutes: &minutes}
	if err := store.UpsertAssignment(ctx, second); err != nil {
		t.Fatalf("UpsertAssignment (replace): %v", err)
	}

	got, err := store.GetAssignment(ctx, key)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got.Status != types.AssignmentCompleted {
		t.Errorf("Status = %s", got.Status)
	}
	if got.ActualMinutes == nil || *got.ActualMinutes != 45 {
		t.Errorf("ActualMinutes = %v", got.ActualMinutes)
	}

	all, _ := store.ListAssignments(ctx, types.AssignmentFilter{User: "maria"})
	if len(all) != 1 {
		t.Errorf("expected single row after upsert, got %d", len(all))
	}
}

func TestRetractHistoryDeletesMostRecentMatch(t *testing.T) {
	store := New()
	ctx := context.Background()
	ref := types.TaskRef("tf-1")

	statuses := []types.Status{types.StatusInProgress, types.StatusBlocked, types.StatusPending, types.StatusBlocked}
	prev := types.StatusPending
	for _, st := range statuses {
		err := store.AppendHistory(ctx, &types.StatusHistoryEntry{
			Kind: ref.Kind, ItemID: ref.ID, PreviousStatus: prev, NewStatus: st, ChangedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
		prev = st
	}

	if err := store.RetractHistory(ctx, ref, types.StatusBlocked); err != nil {
		t.Fatalf("RetractHistory: %v", err)
	}

	hist, err := store.ListHistory(ctx, ref, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist))
	}
	// Most recent first: the final blocked entry is gone, the earlier one
	// survives.
	if hist[0].NewStatus != types.StatusPending {
		t.Errorf("hist[0] = %s, want pending", hist[0].NewStatus)
	}
	if hist[1].NewStatus != types.StatusBlocked {
		t.Errorf("hist[1] = %s, want the earlier blocked entry", hist[1].NewStatus)
	}

	// Retracting with no match is a no-op, not an error.
	if err := store.RetractHistory(ctx, ref, types.StatusApproved); err != nil {
		t.Fatalf("RetractHistory (no match): %v", err)
	}
	hist, _ = store.ListHistory(ctx, ref, 0)
	if len(hist) != 3 {
		t.Errorf("no-match retract changed history: %d entries", len(hist))
	}
}

func TestListHistoryLimit(t *testing.T) {
	store := New()
	ctx := context.Background()
	ref := types.SubtaskRef("tf-1.1")

	for i := 0; i < 5; i++ {
		err := store.AppendHistory(ctx, &types.StatusHistoryEntry{
			Kind: ref.Kind, ItemID: ref.ID, PreviousStatus: types.StatusPending,
			NewStatus: types.StatusInProgress, ChangedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	hist, err := store.ListHistory(ctx, ref, 2)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Errorf("limit ignored: got %d entries", len(hist))
	}
}
