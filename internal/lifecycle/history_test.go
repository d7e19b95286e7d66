package lifecycle_test

import (
	"context"
	"testing"

	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/storage/memory"
	"github.com/rkoval/taskforge/internal/types"
)

func TestRecorderAppendsEntry(t *testing.T) {
	store := memory.New()
	rec := lifecycle.NewRecorder(store)
	ctx := context.Background()
	ref := types.TaskRef("tf-9")

	err := rec.Record(ctx, ref, "", types.Actor("maria"), types.StatusInProgress, types.StatusCompleted, &types.HistoryMetadata{Reason: "done"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	hist, err := store.ListHistory(ctx, ref, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(hist))
	}
	e := hist[0]
	if e.ChangedBy == nil || *e.ChangedBy != "maria" {
		t.Errorf("ChangedBy = %v, want maria", e.ChangedBy)
	}
	if e.PreviousStatus != types.StatusInProgress || e.NewStatus != types.StatusCompleted {
		t.Errorf("statuses = %s -> %s", e.PreviousStatus, e.NewStatus)
	}
	if e.Metadata == nil || e.Metadata.Reason != "done" {
		t.Errorf("metadata not preserved: %+v", e.Metadata)
	}
}

func TestRecorderRetractsOnCancellation(t *testing.T) {
	store := memory.New()
	rec := lifecycle.NewRecorder(store)
	ctx := context.Background()
	ref := types.SubtaskRef("tf-9.1")

	// Build up: in_progress -> blocked -> (unblock).
	seed := []struct {
		from, to types.Status
	}{
		{types.StatusPending, types.StatusInProgress},
		{types.StatusInProgress, types.StatusBlocked},
	}
	for _, s := range seed {
		if err := rec.Record(ctx, ref, "tf-9", types.Actor("maria"), s.from, s.to, nil); err != nil {
			t.Fatalf("Record %s->%s: %v", s.from, s.to, err)
		}
	}

	// blocked -> pending is a cancellation: it removes the blocked entry
	// instead of adding a pending one.
	if err := rec.Record(ctx, ref, "tf-9", types.Actor("admin"), types.StatusBlocked, types.StatusPending, nil); err != nil {
		t.Fatalf("Record unblock: %v", err)
	}

	hist, err := store.ListHistory(ctx, ref, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("expected 1 entry after retract, got %d", len(hist))
	}
	for _, e := range hist {
		if e.NewStatus == types.StatusBlocked {
			t.Errorf("blocked entry survived retraction")
		}
		if e.NewStatus == types.StatusPending {
			t.Errorf("cancellation must not append an entry")
		}
	}
}

func TestRecorderRetractWithNoMatchIsNoop(t *testing.T) {
	store := memory.New()
	rec := lifecycle.NewRecorder(store)
	ctx := context.Background()
	ref := types.TaskRef("tf-9")

	if err := rec.Record(ctx, ref, "", types.Actor("admin"), types.StatusBlocked, types.StatusPending, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}

	hist, err := store.ListHistory(ctx, ref, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(hist))
	}
}
