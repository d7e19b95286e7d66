package taskforge_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rkoval/taskforge"
)

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "taskforge.db")

	ctx := context.Background()
	store, err := taskforge.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	task := &taskforge.Task{ID: "tf-abc123", Title: "Facade round trip", EstimatedMinutes: 60}
	task.SetDefaults()
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := store.GetTask(ctx, "tf-abc123")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != taskforge.StatusPending {
		t.Errorf("expected pending status, got %s", got.Status)
	}
}
