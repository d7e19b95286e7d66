// Package assignment manages the per-user, per-day work assignments that
// tie users to the items they work on, including effort tracking, the
// rework ledger, and the guarded cleanup rules for reassignment and
// unblocking.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/eventbus"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

// ErrMissingNote is returned when a completion lacks its outcome note.
var ErrMissingNote = errors.New("completion requires a non-empty outcome note")

// ErrMissingDuration is returned when a completion lacks a positive
// actual-duration value.
var ErrMissingDuration = errors.New("completion requires a positive actual duration")

// ErrMissingAssignee is returned when a reassignment has no target user.
var ErrMissingAssignee = errors.New("reassignment requires a target user")

// ErrTaskHasSubtasks is returned when an operation targets a task that is
// worked through its subtasks instead.
var ErrTaskHasSubtasks = errors.New("task has subtasks; select a subtask instead")

// Manager creates, completes, reassigns, and cleans up work assignments.
// It is the side channel that moves items into assigned/in_progress and
// completed, which the explicit transition table deliberately excludes.
type Manager struct {
	store    storage.Storage
	recorder *lifecycle.Recorder
	bus      *eventbus.Bus
	now      func() time.Time
}

// NewManager wires the assignment manager. bus may be nil (no events).
func NewManager(store storage.Storage, recorder *lifecycle.Recorder, bus *eventbus.Bus) *Manager {
	return &Manager{store: store, recorder: recorder, bus: bus, now: time.Now}
}

var _ lifecycle.AssignmentCleaner = (*Manager)(nil)

// SelectForToday upserts a work assignment for each item the user picked
// to work on today, and drives the underlying item statuses: the item
// itself to assigned, and a subtask's parent task to in_progress.
func (m *Manager) SelectForToday(ctx context.Context, user string, refs []types.ItemRef) error {
	today := types.DateOf(m.now())
	for _, ref := range refs {
		if err := m.selectOne(ctx, user, today, ref); err != nil {
			return fmt.Errorf("selecting %s: %w", ref, err)
		}
	}
	return nil
}

func (m *Manager) selectOne(ctx context.Context, user, date string, ref types.ItemRef) error {
	var estimated int
	var prev types.Status
	var parentID string

	switch ref.Kind {
	case types.KindTask:
		t, err := m.store.GetTask(ctx, ref.ID)
		if err != nil {
			return err
		}
		subs, err := m.store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: t.ID})
		if err != nil {
			return err
		}
		if len(subs) > 0 {
			return ErrTaskHasSubtasks
		}
		estimated, prev = t.EstimatedMinutes, t.Status
	case types.KindSubtask:
		s, err := m.store.GetSubtask(ctx, ref.ID)
		if err != nil {
			return err
		}
		estimated, prev, parentID = s.EstimatedMinutes, s.Status, s.TaskID
	default:
		return fmt.Errorf("unknown item kind: %s", ref.Kind)
	}

	key := types.AssignmentKey{User: user, Date: date, Kind: ref.Kind, ItemID: ref.ID}
	a := &types.WorkAssignment{
		Key:              key,
		Status:           types.AssignmentAssigned,
		EstimatedMinutes: estimated,
		CreatedAt:        m.now(),
	}
	if existing, err := m.store.GetAssignment(ctx, key); err == nil {
		// Re-selecting after a return keeps the accumulated breakdown.
		a.Breakdown = existing.Breakdown
	}
	if err := m.store.UpsertAssignment(ctx, a); err != nil {
		return err
	}

	if prev != types.StatusAssigned {
		if err := m.setStatus(ctx, ref, parentID, user, prev, types.StatusAssigned, nil); err != nil {
			return err
		}
	}

	if parentID != "" {
		if err := m.startParent(ctx, parentID, user); err != nil {
			// The assignment exists and the subtask moved; a parent bump
			// failure is a cascade, not an operation failure.
			debug.Logf("assignment: parent in_progress cascade failed for %s: %v\n", parentID, err)
		}
	}
	return nil
}

// startParent moves a subtask's parent to in_progress when it is still
// dormant. Blocked or reviewed parents are left alone.
func (m *Manager) startParent(ctx context.Context, taskID, actor string) error {
	parent, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if parent.Status != types.StatusPending && parent.Status != types.StatusAssigned {
		return nil
	}
	prev := parent.Status
	if err := m.store.UpdateTask(ctx, taskID, map[string]interface{}{"status": types.StatusInProgress}); err != nil {
		return err
	}
	return m.recorder.Record(ctx, parent.Ref(), "", types.Actor(actor), prev, types.StatusInProgress, nil)
}

// Complete marks the user's assignment for the item completed. It requires
// a non-empty outcome note and a positive actual duration (minutes). The
// item's time breakdown accumulates: the first completion seeds the initial
// duration, every later completion appends a rework entry, so redo cycles
// add to total effort rather than overwriting it.
//
// The item's note holds the delivery comment after the first completion
// and switches to the accumulated time breakdown once rework exists. The
// running breakdown is always kept on the completed assignment row.
func (m *Manager) Complete(ctx context.Context, user string, ref types.ItemRef, note string, minutes int) error {
	if strings.TrimSpace(note) == "" {
		return ErrMissingNote
	}
	if minutes <= 0 {
		return ErrMissingDuration
	}

	today := types.DateOf(m.now())
	key := types.AssignmentKey{User: user, Date: today, Kind: ref.Kind, ItemID: ref.ID}
	a, err := m.store.GetAssignment(ctx, key)
	if err != nil {
		return fmt.Errorf("no assignment for %s today: %w", ref, err)
	}

	breakdown, prev, parentID, err := m.itemBreakdown(ctx, ref)
	if err != nil {
		return err
	}
	itemNote := types.DeliveryCommentNote(note)
	if breakdown == nil {
		breakdown = &types.TimeBreakdown{InitialMinutes: minutes}
	} else {
		breakdown.AddRework(minutes, m.now(), note)
		itemNote = types.TimeBreakdownNote(breakdown)
	}

	a.Status = types.AssignmentCompleted
	a.ActualMinutes = &minutes
	a.Breakdown = breakdown
	a.Note = note
	if err := m.store.UpsertAssignment(ctx, a); err != nil {
		return err
	}

	session := &types.WorkSession{
		ID:       uuid.NewString(),
		User:     user,
		Date:     today,
		Kind:     ref.Kind,
		ItemID:   ref.ID,
		Minutes:  minutes,
		Note:     note,
		LoggedAt: m.now(),
	}
	if err := m.store.AddWorkSession(ctx, session); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status": types.StatusCompleted,
		"notes":  itemNote,
	}
	if err := m.applyUpdate(ctx, ref, updates); err != nil {
		return err
	}

	meta := &types.HistoryMetadata{Reason: note}
	if err := m.setStatusHistory(ctx, ref, parentID, user, prev, types.StatusCompleted, meta); err != nil {
		debug.Logf("assignment: completion history failed for %s: %v\n", ref, err)
	}
	return nil
}

// itemBreakdown loads the item's accumulated time breakdown (nil when the
// item has never been completed), its current status, and its parent.
func (m *Manager) itemBreakdown(ctx context.Context, ref types.ItemRef) (*types.TimeBreakdown, types.Status, string, error) {
	var note *types.Note
	var status types.Status
	var parentID string

	switch ref.Kind {
	case types.KindTask:
		t, err := m.store.GetTask(ctx, ref.ID)
		if err != nil {
			return nil, "", "", err
		}
		note, status = t.Notes, t.Status
	default:
		s, err := m.store.GetSubtask(ctx, ref.ID)
		if err != nil {
			return nil, "", "", err
		}
		note, status, parentID = s.Notes, s.Status, s.TaskID
	}

	if note != nil && note.Kind == types.NoteTimeBreakdown {
		return note.Breakdown, status, parentID, nil
	}
	tb, err := m.completedBreakdown(ctx, ref)
	if err != nil {
		return nil, "", "", err
	}
	return tb, status, parentID, nil
}

// completedBreakdown recovers the running breakdown from the most recent
// assignment row carrying one. After a first completion the item's note
// holds the delivery comment, so the breakdown has to come from the
// assignment rows.
func (m *Manager) completedBreakdown(ctx context.Context, ref types.ItemRef) (*types.TimeBreakdown, error) {
	rows, err := m.store.ListAssignments(ctx, types.AssignmentFilter{
		Kind:   ref.Kind,
		ItemID: ref.ID,
	})
	if err != nil {
		return nil, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Breakdown != nil {
			return rows[i].Breakdown, nil
		}
	}
	return nil, nil
}

// LogWork records a work session without completing the assignment.
// Logged sessions are what the cleanup guards look for.
func (m *Manager) LogWork(ctx context.Context, user string, ref types.ItemRef, minutes int, note string) error {
	if minutes <= 0 {
		return ErrMissingDuration
	}
	session := &types.WorkSession{
		ID:       uuid.NewString(),
		User:     user,
		Date:     types.DateOf(m.now()),
		Kind:     ref.Kind,
		ItemID:   ref.ID,
		Minutes:  minutes,
		Note:     note,
		LoggedAt: m.now(),
	}
	return m.store.AddWorkSession(ctx, session)
}

// Reassign changes an item's assignee. The previous assignee's assignment
// and time-tracking rows are deleted only when they have no recorded work
// session; once work has been logged the stale rows are deliberately left
// in place rather than destroying recorded effort.
func (m *Manager) Reassign(ctx context.Context, ref types.ItemRef, newAssignee, actor string) error {
	if strings.TrimSpace(newAssignee) == "" {
		return ErrMissingAssignee
	}

	var previous []string
	var title, project, parentTitle string

	switch ref.Kind {
	case types.KindTask:
		t, err := m.store.GetTask(ctx, ref.ID)
		if err != nil {
			return err
		}
		previous, title, project = t.Assignees, t.Title, t.Project
		if err := m.store.UpdateTask(ctx, ref.ID, map[string]interface{}{"assignees": []string{newAssignee}}); err != nil {
			return err
		}
	case types.KindSubtask:
		s, err := m.store.GetSubtask(ctx, ref.ID)
		if err != nil {
			return err
		}
		if s.Assignee != "" {
			previous = []string{s.Assignee}
		}
		title = s.Title
		if parent, err := m.store.GetTask(ctx, s.TaskID); err == nil {
			project, parentTitle = parent.Project, parent.Title
		}
		if err := m.store.UpdateSubtask(ctx, ref.ID, map[string]interface{}{"assignee": newAssignee}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown item kind: %s", ref.Kind)
	}

	for _, prev := range previous {
		if prev == newAssignee {
			continue
		}
		if err := m.cleanupUser(ctx, prev, ref); err != nil {
			debug.Logf("assignment: reassignment cleanup failed for %s/%s: %v\n", prev, ref, err)
		}
	}

	if m.bus != nil {
		event := &eventbus.Event{
			Type:        eventbus.EventItemReassigned,
			Ref:         ref,
			Actor:       actor,
			Users:       []string{newAssignee},
			ItemTitle:   title,
			Project:     project,
			ParentTitle: parentTitle,
			Reason:      eventbus.ReasonReassigned,
			At:          m.now(),
		}
		if err := m.bus.Dispatch(ctx, event); err != nil {
			debug.Logf("assignment: reassignment event failed for %s: %v\n", ref, err)
		}
	}
	return nil
}

// CleanupUnblocked removes assignments for an unblocked item, holding to
// the same guard as reassignment: rows with logged work sessions are
// silently kept. Implements lifecycle.AssignmentCleaner.
func (m *Manager) CleanupUnblocked(ctx context.Context, ref types.ItemRef) error {
	assignments, err := m.store.ListAssignments(ctx, types.AssignmentFilter{Kind: ref.Kind, ItemID: ref.ID})
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, a := range assignments {
		if seen[a.Key.User] {
			continue
		}
		seen[a.Key.User] = true
		if err := m.cleanupUser(ctx, a.Key.User, ref); err != nil {
			return err
		}
	}
	return nil
}

// cleanupUser deletes one user's assignment and session rows for an item
// unless logged work exists. Logged work means a silent skip, not an error.
func (m *Manager) cleanupUser(ctx context.Context, user string, ref types.ItemRef) error {
	hasWork, err := m.store.HasWorkSessions(ctx, user, ref)
	if err != nil {
		return err
	}
	if hasWork {
		debug.Logf("assignment: keeping rows for %s/%s (logged work exists)\n", user, ref)
		return nil
	}
	if err := m.store.DeleteWorkSessions(ctx, user, ref); err != nil {
		return err
	}
	return m.store.DeleteAssignments(ctx, user, ref)
}

func (m *Manager) applyUpdate(ctx context.Context, ref types.ItemRef, updates map[string]interface{}) error {
	if ref.Kind == types.KindTask {
		return m.store.UpdateTask(ctx, ref.ID, updates)
	}
	return m.store.UpdateSubtask(ctx, ref.ID, updates)
}

func (m *Manager) setStatus(ctx context.Context, ref types.ItemRef, parentID, actor string, from, to types.Status, meta *types.HistoryMetadata) error {
	if err := m.applyUpdate(ctx, ref, map[string]interface{}{"status": to}); err != nil {
		return err
	}
	return m.setStatusHistory(ctx, ref, parentID, actor, from, to, meta)
}

func (m *Manager) setStatusHistory(ctx context.Context, ref types.ItemRef, parentID, actor string, from, to types.Status, meta *types.HistoryMetadata) error {
	return m.recorder.Record(ctx, ref, parentID, types.Actor(actor), from, to, meta)
}
