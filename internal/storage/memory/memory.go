// Package memory implements the storage interface with in-process maps.
// It backs unit tests and the --backend memory mode; nothing survives
// process exit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

// Store implements storage.Storage with mutex-guarded maps.
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]*types.Task
	subtasks    map[string]*types.Subtask
	assignments map[types.AssignmentKey]*types.WorkAssignment
	sessions    []*types.WorkSession
	history     []*types.StatusHistoryEntry
	nextHistID  int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tasks:       make(map[string]*types.Task),
		subtasks:    make(map[string]*types.Subtask),
		assignments: make(map[types.AssignmentKey]*types.WorkAssignment),
		nextHistID:  1,
	}
}

var _ storage.Storage = (*Store)(nil)

func cloneTask(t *types.Task) *types.Task {
	c := *t
	c.Assignees = append([]string(nil), t.Assignees...)
	return &c
}

func cloneSubtask(s *types.Subtask) *types.Subtask {
	c := *s
	return &c
}

func cloneAssignment(a *types.WorkAssignment) *types.WorkAssignment {
	c := *a
	if a.Breakdown != nil {
		tb := *a.Breakdown
		tb.Rework = append([]types.ReworkEntry(nil), a.Breakdown.Rework...)
		c.Breakdown = &tb
	}
	return &c
}

func cloneHistory(e *types.StatusHistoryEntry) *types.StatusHistoryEntry {
	c := *e
	return &c
}

// CreateTask stores a new task.
func (m *Store) CreateTask(_ context.Context, task *types.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

// GetTask retrieves a task by ID.
func (m *Store) GetTask(_ context.Context, id string) (*types.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneTask(t), nil
}

// UpdateTask applies field updates to a task.
func (m *Store) UpdateTask(_ context.Context, id string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	applyTaskUpdates(t, updates)
	t.UpdatedAt = time.Now()
	return nil
}

func applyTaskUpdates(t *types.Task, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "title":
			t.Title = v.(string)
		case "description":
			t.Description = v.(string)
		case "status":
			t.Status = v.(types.Status)
		case "priority":
			t.Priority = v.(types.Priority)
		case "estimated_minutes":
			t.EstimatedMinutes = v.(int)
		case "sequential":
			t.Sequential = v.(bool)
		case "assignees":
			t.Assignees = append([]string(nil), v.([]string)...)
		case "start_date":
			t.StartDate = v.(*time.Time)
		case "deadline":
			t.Deadline = v.(*time.Time)
		case "feedback":
			t.Feedback = v.(*types.Feedback)
		case "notes":
			t.Notes = v.(*types.Note)
		}
	}
}

// DeleteTask removes a task.
func (m *Store) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// ListTasks returns tasks matching the filter, ordered by creation time.
func (m *Store) ListTasks(_ context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.Task
	for _, t := range m.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.Project != "" && t.Project != filter.Project {
			continue
		}
		if filter.Sequential != nil && t.Sequential != *filter.Sequential {
			continue
		}
		if filter.Assignee != nil && !containsStr(t.Assignees, *filter.Assignee) {
			continue
		}
		if filter.TitleSearch != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.TitleSearch)) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CreateSubtask stores a new subtask.
func (m *Store) CreateSubtask(_ context.Context, sub *types.Subtask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[sub.TaskID]; !ok {
		return storage.ErrNotFound
	}
	m.subtasks[sub.ID] = cloneSubtask(sub)
	return nil
}

// GetSubtask retrieves a subtask by ID.
func (m *Store) GetSubtask(_ context.Context, id string) (*types.Subtask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subtasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneSubtask(s), nil
}

// UpdateSubtask applies field updates to a subtask.
func (m *Store) UpdateSubtask(_ context.Context, id string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subtasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "title":
			s.Title = v.(string)
		case "description":
			s.Description = v.(string)
		case "status":
			s.Status = v.(types.Status)
		case "estimated_minutes":
			s.EstimatedMinutes = v.(int)
		case "sequence_order":
			s.SequenceOrder = v.(*int)
		case "assignee":
			s.Assignee = v.(string)
		case "start_date":
			s.StartDate = v.(*time.Time)
		case "deadline":
			s.Deadline = v.(*time.Time)
		case "feedback":
			s.Feedback = v.(*types.Feedback)
		case "notes":
			s.Notes = v.(*types.Note)
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

// DeleteSubtask removes a subtask.
func (m *Store) DeleteSubtask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subtasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.subtasks, id)
	return nil
}

// ListSubtasks returns subtasks matching the filter, ordered by sequence
// order (nil last) then creation time.
func (m *Store) ListSubtasks(_ context.Context, filter types.SubtaskFilter) ([]*types.Subtask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.Subtask
	for _, s := range m.subtasks {
		if filter.TaskID != "" && s.TaskID != filter.TaskID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.Assignee != nil && s.Assignee != *filter.Assignee {
			continue
		}
		out = append(out, cloneSubtask(s))
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].SequenceOrder, out[j].SequenceOrder
		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case oi != nil && oj == nil:
			return true
		case oi == nil && oj != nil:
			return false
		}
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpsertAssignment inserts or replaces the assignment row for its key.
func (m *Store) UpsertAssignment(_ context.Context, a *types.WorkAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.assignments[a.Key]
	c := cloneAssignment(a)
	if ok {
		c.CreatedAt = existing.CreatedAt
	}
	c.UpdatedAt = time.Now()
	m.assignments[a.Key] = c
	return nil
}

// GetAssignment retrieves the assignment row for a key.
func (m *Store) GetAssignment(_ context.Context, key types.AssignmentKey) (*types.WorkAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneAssignment(a), nil
}

// ListAssignments returns assignments matching the filter.
func (m *Store) ListAssignments(_ context.Context, filter types.AssignmentFilter) ([]*types.WorkAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.WorkAssignment
	for _, a := range m.assignments {
		if filter.User != "" && a.Key.User != filter.User {
			continue
		}
		if filter.Date != "" && a.Key.Date != filter.Date {
			continue
		}
		if filter.Kind != "" && a.Key.Kind != filter.Kind {
			continue
		}
		if filter.ItemID != "" && a.Key.ItemID != filter.ItemID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, cloneAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteAssignments removes all assignment rows for a user/item pair.
func (m *Store) DeleteAssignments(_ context.Context, user string, ref types.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.assignments {
		if k.User == user && k.Kind == ref.Kind && k.ItemID == ref.ID {
			delete(m.assignments, k)
		}
	}
	return nil
}

// DeleteAssignmentsForItem removes all assignment rows for an item.
func (m *Store) DeleteAssignmentsForItem(_ context.Context, ref types.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.assignments {
		if k.Kind == ref.Kind && k.ItemID == ref.ID {
			delete(m.assignments, k)
		}
	}
	return nil
}

// AddWorkSession records a logged work session.
func (m *Store) AddWorkSession(_ context.Context, s *types.WorkSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.sessions = append(m.sessions, &c)
	return nil
}

// HasWorkSessions reports whether any session exists for a user/item pair.
func (m *Store) HasWorkSessions(_ context.Context, user string, ref types.ItemRef) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.User == user && s.Kind == ref.Kind && s.ItemID == ref.ID {
			return true, nil
		}
	}
	return false, nil
}

// ListWorkSessions returns sessions for a user/item pair in logged order.
func (m *Store) ListWorkSessions(_ context.Context, user string, ref types.ItemRef) ([]*types.WorkSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.WorkSession
	for _, s := range m.sessions {
		if s.User == user && s.Kind == ref.Kind && s.ItemID == ref.ID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

// DeleteWorkSessions removes sessions for a user/item pair.
func (m *Store) DeleteWorkSessions(_ context.Context, user string, ref types.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if !(s.User == user && s.Kind == ref.Kind && s.ItemID == ref.ID) {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	return nil
}

// DeleteWorkSessionsForItem removes all sessions for an item.
func (m *Store) DeleteWorkSessionsForItem(_ context.Context, ref types.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if !(s.Kind == ref.Kind && s.ItemID == ref.ID) {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	return nil
}

// AppendHistory appends a status-history entry.
func (m *Store) AppendHistory(_ context.Context, e *types.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneHistory(e)
	c.ID = m.nextHistID
	m.nextHistID++
	m.history = append(m.history, c)
	return nil
}

// RetractHistory deletes the most recent entry for ref with the given
// NewStatus. No-op when nothing matches.
func (m *Store) RetractHistory(_ context.Context, ref types.ItemRef, newStatus types.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		if e.Kind == ref.Kind && e.ItemID == ref.ID && e.NewStatus == newStatus {
			m.history = append(m.history[:i], m.history[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListHistory returns entries for an item, most recent first.
func (m *Store) ListHistory(_ context.Context, ref types.ItemRef, limit int) ([]*types.StatusHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.StatusHistoryEntry
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		if e.Kind == ref.Kind && e.ItemID == ref.ID {
			out = append(out, cloneHistory(e))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// DeleteHistoryForItem removes all entries for an item.
func (m *Store) DeleteHistoryForItem(_ context.Context, ref types.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.history[:0]
	for _, e := range m.history {
		if !(e.Kind == ref.Kind && e.ItemID == ref.ID) {
			kept = append(kept, e)
		}
	}
	m.history = kept
	return nil
}

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }
