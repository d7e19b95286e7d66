package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkoval/taskforge/internal/assignment"
	"github.com/rkoval/taskforge/internal/eventbus"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/storage/memory"
	"github.com/rkoval/taskforge/internal/types"
)

// captureHandler records every event the bus dispatches.
type captureHandler struct {
	mu     sync.Mutex
	events []*eventbus.Event
}

func (c *captureHandler) ID() string    { return "test-capture" }
func (c *captureHandler) Priority() int { return 0 }
func (c *captureHandler) Handles() []eventbus.EventType {
	return []eventbus.EventType{
		eventbus.EventStatusChanged,
		eventbus.EventItemAvailable,
		eventbus.EventReviewRequested,
		eventbus.EventItemReturned,
		eventbus.EventItemReassigned,
	}
}

func (c *captureHandler) Handle(_ context.Context, event *eventbus.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureHandler) ofType(t eventbus.EventType) []*eventbus.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*eventbus.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store   *memory.Store
	capture *captureHandler
	orch    *lifecycle.Orchestrator
	mgr     *assignment.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	bus := eventbus.New()
	capture := &captureHandler{}
	bus.Register(capture)

	mgr := assignment.NewManager(store, lifecycle.NewRecorder(store), bus)
	orch := lifecycle.NewOrchestrator(store, bus, mgr, []string{"admin"})

	return &testEnv{store: store, capture: capture, orch: orch, mgr: mgr}
}

func (e *testEnv) mustCreateTask(t *testing.T, task *types.Task) *types.Task {
	t.Helper()
	task.SetDefaults()
	if task.EstimatedMinutes == 0 {
		task.EstimatedMinutes = 60
	}
	task.CreatedAt = time.Now()
	require.NoError(t, e.store.CreateTask(context.Background(), task))
	return task
}

func (e *testEnv) mustCreateSubtask(t *testing.T, sub *types.Subtask) *types.Subtask {
	t.Helper()
	sub.SetDefaults()
	if sub.EstimatedMinutes == 0 {
		sub.EstimatedMinutes = 30
	}
	sub.CreatedAt = time.Now()
	require.NoError(t, e.store.CreateSubtask(context.Background(), sub))
	return sub
}

func (e *testEnv) setStatus(t *testing.T, ref types.ItemRef, status types.Status) {
	t.Helper()
	updates := map[string]interface{}{"status": status}
	var err error
	if ref.Kind == types.KindTask {
		err = e.store.UpdateTask(context.Background(), ref.ID, updates)
	} else {
		err = e.store.UpdateSubtask(context.Background(), ref.ID, updates)
	}
	require.NoError(t, err)
}

func TestTransitionRejectsBeforeMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet"})

	err := env.orch.RequestReview(ctx, task.Ref(), "maria")
	require.Error(t, err)
	assert.True(t, lifecycle.IsGateError(err))

	got, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status, "gate rejection must not mutate")

	hist, err := env.store.ListHistory(ctx, task.Ref(), 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestReturnRequiresComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet", Assignees: []string{"maria"}})
	env.setStatus(t, task.Ref(), types.StatusInReview)

	err := env.orch.Return(ctx, task.Ref(), lifecycle.Request{Actor: "admin"})
	require.Error(t, err)

	require.NoError(t, env.orch.Return(ctx, task.Ref(), lifecycle.Request{Actor: "admin", Comment: "totals off by one"}))

	got, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusReturned, got.Status)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, "totals off by one", got.Feedback.Comment)
	assert.Equal(t, "admin", got.Feedback.Reviewer)

	returned := env.capture.ofType(eventbus.EventItemReturned)
	require.Len(t, returned, 1)
	assert.Equal(t, []string{"maria"}, returned[0].Users)
	assert.Equal(t, eventbus.ReasonReturned, returned[0].Reason)
}

func TestApproveStoresRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet"})
	env.setStatus(t, task.Ref(), types.StatusInReview)

	err := env.orch.Approve(ctx, task.Ref(), lifecycle.Request{Actor: "admin", Rating: 9})
	require.ErrorIs(t, err, lifecycle.ErrInvalidRating)

	require.NoError(t, env.orch.Approve(ctx, task.Ref(), lifecycle.Request{Actor: "admin", Rating: 4, Comment: "clean work"}))

	got, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, got.Status)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, 4, got.Feedback.Rating)
}

func TestReviewCancelRetractsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet"})
	env.setStatus(t, task.Ref(), types.StatusCompleted)

	require.NoError(t, env.orch.RequestReview(ctx, task.Ref(), "maria"))

	hist, err := env.store.ListHistory(ctx, task.Ref(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, types.StatusInReview, hist[0].NewStatus)

	// Admin cancels the review: the in_review entry is retracted, nothing
	// appended.
	require.NoError(t, env.orch.CancelReview(ctx, task.Ref(), "admin"))

	hist, err = env.store.ListHistory(ctx, task.Ref(), 0)
	require.NoError(t, err)
	assert.Empty(t, hist)

	got, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
}

func TestUnblockRetractsBlockHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet", Assignees: []string{"maria"}})
	env.setStatus(t, task.Ref(), types.StatusInProgress)

	require.NoError(t, env.orch.Block(ctx, task.Ref(), "waiting on access grant", "maria"))

	got, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusBlocked, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, types.NoteBlockReason, got.Notes.Kind)

	hist, err := env.store.ListHistory(ctx, task.Ref(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)

	require.NoError(t, env.orch.Unblock(ctx, task.Ref(), "admin"))

	// Exactly one prior blocked entry: zero remain, and none were added.
	hist, err = env.store.ListHistory(ctx, task.Ref(), 0)
	require.NoError(t, err)
	assert.Empty(t, hist)

	got, err = env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Nil(t, got.Notes, "block reason cleared on unblock")

	available := env.capture.ofType(eventbus.EventItemAvailable)
	require.Len(t, available, 1)
	assert.Equal(t, eventbus.ReasonUnblocked, available[0].Reason)
	assert.Equal(t, []string{"maria"}, available[0].Users)
}

func TestUnblockCleansAssignmentsWithoutLoggedWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet", Assignees: []string{"maria"}})
	require.NoError(t, env.mgr.SelectForToday(ctx, "maria", []types.ItemRef{task.Ref()}))

	require.NoError(t, env.orch.Block(ctx, task.Ref(), "vendor outage", "maria"))
	require.NoError(t, env.orch.Unblock(ctx, task.Ref(), "admin"))

	assignments, err := env.store.ListAssignments(ctx, types.AssignmentFilter{ItemID: "tf-1"})
	require.NoError(t, err)
	assert.Empty(t, assignments, "assignment without logged work is removed on unblock")
}

func TestUnblockKeepsAssignmentsWithLoggedWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet", Assignees: []string{"maria"}})
	require.NoError(t, env.mgr.SelectForToday(ctx, "maria", []types.ItemRef{task.Ref()}))
	require.NoError(t, env.mgr.LogWork(ctx, "maria", task.Ref(), 45, "partial pass"))

	require.NoError(t, env.orch.Block(ctx, task.Ref(), "vendor outage", "maria"))
	require.NoError(t, env.orch.Unblock(ctx, task.Ref(), "admin"))

	assignments, err := env.store.ListAssignments(ctx, types.AssignmentFilter{ItemID: "tf-1"})
	require.NoError(t, err)
	assert.Len(t, assignments, 1, "logged work keeps the assignment row")
}

func TestParentAutoApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Quarterly close"})
	s1 := env.mustCreateSubtask(t, &types.Subtask{ID: "tf-1.1", TaskID: "tf-1", Title: "Reconcile", Assignee: "maria"})
	s2 := env.mustCreateSubtask(t, &types.Subtask{ID: "tf-1.2", TaskID: "tf-1", Title: "Report", Assignee: "dana"})

	env.setStatus(t, s1.Ref(), types.StatusInReview)
	require.NoError(t, env.orch.Approve(ctx, s1.Ref(), lifecycle.Request{Actor: "admin"}))

	parent, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.NotEqual(t, types.StatusApproved, parent.Status, "one pending subtask remains")

	env.setStatus(t, s2.Ref(), types.StatusInReview)
	require.NoError(t, env.orch.Approve(ctx, s2.Ref(), lifecycle.Request{Actor: "admin"}))

	parent, err = env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, parent.Status)

	// The parent's entry is the one status change with no human actor.
	hist, err := env.store.ListHistory(ctx, parent.Ref(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Nil(t, hist[0].ChangedBy)
	require.NotNil(t, hist[0].Metadata)
	assert.Equal(t, "all subtasks approved", hist[0].Metadata.Reason)
}

func TestSequentialEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Site migration", Sequential: true})
	one, two := 1, 2
	s1 := env.mustCreateSubtask(t, &types.Subtask{ID: "tf-1.1", TaskID: "tf-1", Title: "Export", SequenceOrder: &one, Assignee: "a"})
	s2 := env.mustCreateSubtask(t, &types.Subtask{ID: "tf-1.2", TaskID: "tf-1", Title: "Transform", SequenceOrder: &one, Assignee: "b"})
	s3 := env.mustCreateSubtask(t, &types.Subtask{ID: "tf-1.3", TaskID: "tf-1", Title: "Import", SequenceOrder: &two, Assignee: "u"})

	// Approve S1: level 1 incomplete, no unlock notification.
	env.setStatus(t, s1.Ref(), types.StatusInReview)
	require.NoError(t, env.orch.Approve(ctx, s1.Ref(), lifecycle.Request{Actor: "admin"}))

	subs, err := env.store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: "tf-1"})
	require.NoError(t, err)
	parent, err := env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.AggregateInProgress, lifecycle.Aggregate(parent, subs))
	assert.Empty(t, env.capture.ofType(eventbus.EventItemAvailable))

	// Approve S2: level 1 clears, exactly one notification for S3's
	// assignee. Parent not yet approved (S3 pending).
	env.setStatus(t, s2.Ref(), types.StatusInReview)
	require.NoError(t, env.orch.Approve(ctx, s2.Ref(), lifecycle.Request{Actor: "admin"}))

	subs, err = env.store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: "tf-1"})
	require.NoError(t, err)
	parent, err = env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.AggregateInProgress, lifecycle.Aggregate(parent, subs))
	assert.NotEqual(t, types.StatusApproved, parent.Status)

	available := env.capture.ofType(eventbus.EventItemAvailable)
	require.Len(t, available, 1)
	assert.Equal(t, types.SubtaskRef("tf-1.3"), available[0].Ref)
	assert.Equal(t, []string{"u"}, available[0].Users)
	assert.Equal(t, eventbus.ReasonSequentialDependency, available[0].Reason)
	assert.Equal(t, "Site migration", available[0].ParentTitle)

	// Approve S3: aggregate completed, parent implicitly approved with a
	// system history entry.
	env.setStatus(t, s3.Ref(), types.StatusInReview)
	require.NoError(t, env.orch.Approve(ctx, s3.Ref(), lifecycle.Request{Actor: "admin"}))

	subs, err = env.store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: "tf-1"})
	require.NoError(t, err)
	parent, err = env.store.GetTask(ctx, "tf-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.AggregateCompleted, lifecycle.Aggregate(parent, subs))
	assert.Equal(t, types.StatusApproved, parent.Status)

	hist, err := env.store.ListHistory(ctx, task.Ref(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Nil(t, hist[0].ChangedBy)

	// No further unlock notifications past the last level.
	assert.Len(t, env.capture.ofType(eventbus.EventItemAvailable), 1)
}

func TestReviewRequestNotifiesReviewers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Audit spreadsheet"})
	env.setStatus(t, task.Ref(), types.StatusCompleted)
	require.NoError(t, env.orch.RequestReview(ctx, task.Ref(), "maria"))

	requested := env.capture.ofType(eventbus.EventReviewRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, []string{"admin"}, requested[0].Users)
	assert.Equal(t, "maria", requested[0].Actor)
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreateTask(t, &types.Task{ID: "tf-1", Title: "Quarterly close"})
	sub := env.mustCreateSubtask(t, &types.Subtask{ID: "tf-1.1", TaskID: "tf-1", Title: "Reconcile", Assignee: "maria"})

	require.NoError(t, env.mgr.SelectForToday(ctx, "maria", []types.ItemRef{sub.Ref()}))
	require.NoError(t, env.mgr.LogWork(ctx, "maria", sub.Ref(), 30, "setup"))

	require.NoError(t, env.orch.Delete(ctx, task.Ref()))

	_, err := env.store.GetTask(ctx, "tf-1")
	assert.Error(t, err)
	_, err = env.store.GetSubtask(ctx, "tf-1.1")
	assert.Error(t, err)

	assignments, err := env.store.ListAssignments(ctx, types.AssignmentFilter{ItemID: "tf-1.1"})
	require.NoError(t, err)
	assert.Empty(t, assignments)

	has, err := env.store.HasWorkSessions(ctx, "maria", sub.Ref())
	require.NoError(t, err)
	assert.False(t, has)
}
