// Package storage provides shared types for work item storage.
//
// Concrete implementations live in the sqlite, postgres, and memory
// sub-packages. This package holds the interface and sentinel errors
// referenced by both the implementations and their consumers (cmd/tf,
// internal/lifecycle, internal/assignment).
package storage

import (
	"context"
	"errors"

	"github.com/rkoval/taskforge/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotInitialized is returned when a backend cannot be opened because
// its required connection settings are missing.
var ErrNotInitialized = errors.New("storage not initialized")

// Storage is the persistence collaborator for the lifecycle engine.
// Consumers depend on this interface rather than on a concrete type so that
// alternative implementations (memory, mocks) can be substituted.
//
// Updates are atomic per row but carry no optimistic-concurrency token:
// two concurrent transitions on the same item race and the later write
// wins. Callers re-read current status immediately before validating.
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)

	// Subtasks
	CreateSubtask(ctx context.Context, sub *types.Subtask) error
	GetSubtask(ctx context.Context, id string) (*types.Subtask, error)
	UpdateSubtask(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteSubtask(ctx context.Context, id string) error
	ListSubtasks(ctx context.Context, filter types.SubtaskFilter) ([]*types.Subtask, error)

	// Work assignments (upsert on key conflict)
	UpsertAssignment(ctx context.Context, a *types.WorkAssignment) error
	GetAssignment(ctx context.Context, key types.AssignmentKey) (*types.WorkAssignment, error)
	ListAssignments(ctx context.Context, filter types.AssignmentFilter) ([]*types.WorkAssignment, error)
	DeleteAssignments(ctx context.Context, user string, ref types.ItemRef) error
	DeleteAssignmentsForItem(ctx context.Context, ref types.ItemRef) error

	// Work sessions
	AddWorkSession(ctx context.Context, s *types.WorkSession) error
	HasWorkSessions(ctx context.Context, user string, ref types.ItemRef) (bool, error)
	ListWorkSessions(ctx context.Context, user string, ref types.ItemRef) ([]*types.WorkSession, error)
	DeleteWorkSessions(ctx context.Context, user string, ref types.ItemRef) error
	DeleteWorkSessionsForItem(ctx context.Context, ref types.ItemRef) error

	// Status history
	AppendHistory(ctx context.Context, e *types.StatusHistoryEntry) error
	// RetractHistory deletes the most recent entry for ref whose NewStatus
	// matches. It is a no-op (nil error) when no such entry exists.
	RetractHistory(ctx context.Context, ref types.ItemRef, newStatus types.Status) error
	ListHistory(ctx context.Context, ref types.ItemRef, limit int) ([]*types.StatusHistoryEntry, error)
	DeleteHistoryForItem(ctx context.Context, ref types.ItemRef) error

	// Lifecycle
	Close() error
}
