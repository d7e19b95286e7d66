// Package taskforge provides a minimal public API for programmatic access
// to a taskforge workspace.
//
// It exports only the types and constructors needed by Go programs that
// want to read or drive the lifecycle engine directly, without shelling
// out to the tf CLI.
package taskforge

import (
	"context"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/storage/sqlite"
	"github.com/rkoval/taskforge/internal/types"
)

// Core types for working with items
type (
	Task           = types.Task
	Subtask        = types.Subtask
	Status         = types.Status
	ItemRef        = types.ItemRef
	WorkAssignment = types.WorkAssignment
	TaskFilter     = types.TaskFilter
	SubtaskFilter  = types.SubtaskFilter
)

// Status constants
const (
	StatusPending    = types.StatusPending
	StatusAssigned   = types.StatusAssigned
	StatusInProgress = types.StatusInProgress
	StatusBlocked    = types.StatusBlocked
	StatusCompleted  = types.StatusCompleted
	StatusInReview   = types.StatusInReview
	StatusReturned   = types.StatusReturned
	StatusApproved   = types.StatusApproved
)

// TaskRef returns an ItemRef for a task ID.
func TaskRef(id string) ItemRef { return types.TaskRef(id) }

// SubtaskRef returns an ItemRef for a subtask ID.
func SubtaskRef(id string) ItemRef { return types.SubtaskRef(id) }

// Storage is the persistence interface shared with the CLI.
type Storage = storage.Storage

// Open opens a taskforge SQLite database for programmatic access.
func Open(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, dbPath)
}
