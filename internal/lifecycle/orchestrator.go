package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/eventbus"
	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/telemetry"
	"github.com/rkoval/taskforge/internal/types"
)

// AssignmentCleaner is the orchestrator's hook into work-assignment
// bookkeeping. The assignment manager implements it; the indirection keeps
// the cascade testable without the full manager.
type AssignmentCleaner interface {
	// CleanupUnblocked removes assignment rows for an item unless logged
	// work sessions exist for them (in which case rows are kept silently).
	CleanupUnblocked(ctx context.Context, ref types.ItemRef) error
}

// Request carries the actor and optional feedback for a transition.
type Request struct {
	Actor   string
	Comment string
	// Rating is 1-5; zero means no rating supplied.
	Rating int
}

// Orchestrator coordinates validated transitions and their cascades:
// parent approval, sequential unlock, history write/retract, and event
// emission. Gate errors return before any mutation; cascade and
// collaborator errors after the core mutation are logged, never raised.
type Orchestrator struct {
	store    storage.Storage
	recorder *Recorder
	bus      *eventbus.Bus
	cleaner  AssignmentCleaner
	// reviewers are notified on review requests.
	reviewers []string
	now       func() time.Time

	tracer      trace.Tracer
	transitions metric.Int64Counter
	cascadeErrs metric.Int64Counter
}

// NewOrchestrator wires the orchestrator. cleaner may be nil (unblock then
// skips assignment cleanup); bus may be nil (no events emitted).
func NewOrchestrator(store storage.Storage, bus *eventbus.Bus, cleaner AssignmentCleaner, reviewers []string) *Orchestrator {
	meter := telemetry.Meter("lifecycle")
	transitions, _ := meter.Int64Counter("taskforge.transitions",
		metric.WithDescription("Validated status transitions applied"))
	cascadeErrs, _ := meter.Int64Counter("taskforge.cascade_failures",
		metric.WithDescription("Cascade steps that failed after the core mutation committed"))

	return &Orchestrator{
		store:       store,
		recorder:    NewRecorder(store),
		bus:         bus,
		cleaner:     cleaner,
		reviewers:   reviewers,
		now:         time.Now,
		tracer:      telemetry.Tracer("lifecycle"),
		transitions: transitions,
		cascadeErrs: cascadeErrs,
	}
}

// Recorder exposes the history recorder for side-channel writers (the
// assignment manager records completion history through it).
func (o *Orchestrator) Recorder() *Recorder { return o.recorder }

// RequestReview moves a completed item into review.
func (o *Orchestrator) RequestReview(ctx context.Context, ref types.ItemRef, actor string) error {
	return o.Transition(ctx, ref, types.StatusInReview, Request{Actor: actor})
}

// Approve approves an in-review item, with optional comment and rating.
func (o *Orchestrator) Approve(ctx context.Context, ref types.ItemRef, req Request) error {
	return o.Transition(ctx, ref, types.StatusApproved, req)
}

// Return sends an in-review item back to its assignee. The comment is
// mandatory.
func (o *Orchestrator) Return(ctx context.Context, ref types.ItemRef, req Request) error {
	return o.Transition(ctx, ref, types.StatusReturned, req)
}

// CancelReview withdraws an item from review (admin cancel). The review's
// history entry is retracted, not superseded.
func (o *Orchestrator) CancelReview(ctx context.Context, ref types.ItemRef, actor string) error {
	return o.Transition(ctx, ref, types.StatusCompleted, Request{Actor: actor})
}

// Unblock moves a blocked item back to pending, retracts the block's
// history entry, and cleans up assignments without logged work.
func (o *Orchestrator) Unblock(ctx context.Context, ref types.ItemRef, actor string) error {
	return o.Transition(ctx, ref, types.StatusPending, Request{Actor: actor})
}

// Transition validates and applies a table-gated status change, then runs
// cascades. Current status is read immediately before the write; there is
// no lock between read and write, and the later of two racing writes wins.
func (o *Orchestrator) Transition(ctx context.Context, ref types.ItemRef, to types.Status, req Request) error {
	ctx, span := o.tracer.Start(ctx, "lifecycle.transition", trace.WithAttributes(
		attribute.String("item.id", ref.ID),
		attribute.String("status.to", string(to)),
	))
	defer span.End()

	item, err := o.loadItem(ctx, ref)
	if err != nil {
		return err
	}
	from := item.status

	payload := TransitionPayload{Comment: req.Comment, Rating: req.Rating}
	if err := ValidateTransition(ref.Kind, from, to, payload); err != nil {
		return err
	}

	updates := map[string]interface{}{"status": to}

	var fb *types.Feedback
	switch to {
	case types.StatusReturned, types.StatusApproved:
		fb = &types.Feedback{
			Comment:  req.Comment,
			Rating:   req.Rating,
			Reviewer: req.Actor,
			At:       o.now(),
		}
		updates["feedback"] = fb
	case types.StatusPending:
		// Unblock: the block reason no longer applies.
		updates["notes"] = (*types.Note)(nil)
	}

	if err := o.applyUpdate(ctx, ref, updates); err != nil {
		return err
	}

	o.count(ref.Kind, from, to)

	var meta *types.HistoryMetadata
	if fb != nil {
		meta = &types.HistoryMetadata{Feedback: fb}
	}
	if err := o.recorder.Record(ctx, ref, item.taskID, types.Actor(req.Actor), from, to, meta); err != nil {
		// The core mutation is committed; history failure is a cascade
		// failure, not a user-facing one.
		o.cascadeFailed(ctx, ref, "history", err)
	}

	o.emit(ctx, &eventbus.Event{
		Type:     eventbus.EventStatusChanged,
		Ref:      ref,
		Actor:    req.Actor,
		Previous: from,
		New:      to,
	}, item)
	o.runCascades(ctx, ref, item, from, to, req)
	return nil
}

// Block is a side-channel transition: it is not part of the explicit table
// but records the block reason and appends history like any other change.
func (o *Orchestrator) Block(ctx context.Context, ref types.ItemRef, reason, actor string) error {
	if strings.TrimSpace(reason) == "" {
		return &MissingFeedbackError{To: types.StatusBlocked, Detail: "a non-empty block reason"}
	}

	item, err := o.loadItem(ctx, ref)
	if err != nil {
		return err
	}
	from := item.status
	if from == types.StatusBlocked || from == types.StatusApproved {
		return &InvalidTransitionError{Kind: ref.Kind, From: from, To: types.StatusBlocked}
	}

	updates := map[string]interface{}{
		"status": types.StatusBlocked,
		"notes":  types.BlockReasonNote(reason),
	}
	if err := o.applyUpdate(ctx, ref, updates); err != nil {
		return err
	}

	o.count(ref.Kind, from, types.StatusBlocked)

	meta := &types.HistoryMetadata{Reason: reason}
	if err := o.recorder.Record(ctx, ref, item.taskID, types.Actor(actor), from, types.StatusBlocked, meta); err != nil {
		o.cascadeFailed(ctx, ref, "history", err)
	}

	o.emit(ctx, &eventbus.Event{
		Type:     eventbus.EventStatusChanged,
		Ref:      ref,
		Actor:    actor,
		Previous: from,
		New:      types.StatusBlocked,
	}, item)
	return nil
}

// Delete removes an item and everything referencing it: work sessions,
// assignments, then history, then the item itself, respecting referential
// constraints in the storage layer. Deleting a task removes its subtasks
// first, each with the same cascade.
func (o *Orchestrator) Delete(ctx context.Context, ref types.ItemRef) error {
	if ref.Kind == types.KindTask {
		subs, err := o.store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: ref.ID})
		if err != nil {
			return fmt.Errorf("failed to list subtasks of %s: %w", ref.ID, err)
		}
		for _, s := range subs {
			if err := o.deleteOne(ctx, s.Ref()); err != nil {
				return err
			}
		}
	}
	return o.deleteOne(ctx, ref)
}

func (o *Orchestrator) deleteOne(ctx context.Context, ref types.ItemRef) error {
	if err := o.store.DeleteWorkSessionsForItem(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete work sessions for %s: %w", ref, err)
	}
	if err := o.store.DeleteAssignmentsForItem(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete assignments for %s: %w", ref, err)
	}
	if err := o.store.DeleteHistoryForItem(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete history for %s: %w", ref, err)
	}
	switch ref.Kind {
	case types.KindTask:
		return o.store.DeleteTask(ctx, ref.ID)
	default:
		return o.store.DeleteSubtask(ctx, ref.ID)
	}
}

// loadedItem is the slice of task/subtask state transitions need.
type loadedItem struct {
	status    types.Status
	title     string
	project   string
	taskID    string   // parent, for subtasks
	assignees []string // subtask: one; task: direct assignees
}

func (o *Orchestrator) loadItem(ctx context.Context, ref types.ItemRef) (*loadedItem, error) {
	switch ref.Kind {
	case types.KindTask:
		t, err := o.store.GetTask(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &loadedItem{status: t.Status, title: t.Title, project: t.Project, assignees: t.Assignees}, nil
	case types.KindSubtask:
		s, err := o.store.GetSubtask(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		li := &loadedItem{status: s.Status, title: s.Title, taskID: s.TaskID}
		if s.Assignee != "" {
			li.assignees = []string{s.Assignee}
		}
		if parent, err := o.store.GetTask(ctx, s.TaskID); err == nil {
			li.project = parent.Project
		}
		return li, nil
	default:
		return nil, fmt.Errorf("unknown item kind: %s", ref.Kind)
	}
}

func (o *Orchestrator) applyUpdate(ctx context.Context, ref types.ItemRef, updates map[string]interface{}) error {
	switch ref.Kind {
	case types.KindTask:
		return o.store.UpdateTask(ctx, ref.ID, updates)
	default:
		return o.store.UpdateSubtask(ctx, ref.ID, updates)
	}
}

// runCascades executes the secondary effects of a committed transition.
// Every failure here is logged and swallowed.
func (o *Orchestrator) runCascades(ctx context.Context, ref types.ItemRef, item *loadedItem, from, to types.Status, req Request) {
	switch to {
	case types.StatusPending:
		// Unblock cleanup, then tell the assignees the item is workable
		// again.
		if o.cleaner != nil {
			if err := o.cleaner.CleanupUnblocked(ctx, ref); err != nil {
				o.cascadeFailed(ctx, ref, "unblock-cleanup", err)
			}
		}
		o.emit(ctx, &eventbus.Event{
			Type:     eventbus.EventItemAvailable,
			Ref:      ref,
			Actor:    req.Actor,
			Previous: from,
			New:      to,
			Users:    item.assignees,
			Reason:   eventbus.ReasonUnblocked,
		}, item)

	case types.StatusInReview:
		o.emit(ctx, &eventbus.Event{
			Type:     eventbus.EventReviewRequested,
			Ref:      ref,
			Actor:    req.Actor,
			Previous: from,
			New:      to,
			Users:    o.reviewers,
		}, item)

	case types.StatusReturned:
		o.emit(ctx, &eventbus.Event{
			Type:     eventbus.EventItemReturned,
			Ref:      ref,
			Actor:    req.Actor,
			Previous: from,
			New:      to,
			Users:    item.assignees,
			Reason:   eventbus.ReasonReturned,
		}, item)

	case types.StatusApproved:
		if ref.Kind == types.KindSubtask {
			o.approvalCascade(ctx, ref, item)
		}
	}
}

// approvalCascade runs after a subtask is approved: parent auto-approval
// when it was the last non-approved subtask, then sequential unlock
// notifications.
func (o *Orchestrator) approvalCascade(ctx context.Context, ref types.ItemRef, item *loadedItem) {
	subs, err := o.store.ListSubtasks(ctx, types.SubtaskFilter{TaskID: item.taskID})
	if err != nil {
		o.cascadeFailed(ctx, ref, "approval-cascade", err)
		return
	}
	parent, err := o.store.GetTask(ctx, item.taskID)
	if err != nil {
		o.cascadeFailed(ctx, ref, "approval-cascade", err)
		return
	}

	var approvedSub *types.Subtask
	allApproved := true
	for _, s := range subs {
		if s.ID == ref.ID {
			approvedSub = s
		}
		if s.Status != types.StatusApproved {
			allApproved = false
		}
	}

	if allApproved && parent.Status != types.StatusApproved {
		// The one status change with no human actor: the parent's canonical
		// status follows its subtasks.
		prev := parent.Status
		if err := o.store.UpdateTask(ctx, parent.ID, map[string]interface{}{"status": types.StatusApproved}); err != nil {
			o.cascadeFailed(ctx, ref, "parent-approval", err)
		} else {
			o.count(types.KindTask, prev, types.StatusApproved)
			meta := &types.HistoryMetadata{Reason: "all subtasks approved"}
			if err := o.recorder.Record(ctx, parent.Ref(), "", types.SystemActor(), prev, types.StatusApproved, meta); err != nil {
				o.cascadeFailed(ctx, ref, "parent-approval-history", err)
			}
			o.emit(ctx, &eventbus.Event{
				Type:      eventbus.EventStatusChanged,
				Ref:       parent.Ref(),
				Previous:  prev,
				New:       types.StatusApproved,
				ItemTitle: parent.Title,
				Project:   parent.Project,
			}, nil)
		}
	}

	if parent.Sequential && approvedSub != nil {
		for _, unlocked := range ResolveUnlocks(subs, approvedSub) {
			var users []string
			if unlocked.Assignee != "" {
				users = []string{unlocked.Assignee}
			}
			o.emit(ctx, &eventbus.Event{
				Type:        eventbus.EventItemAvailable,
				Ref:         unlocked.Ref(),
				Users:       users,
				ItemTitle:   unlocked.Title,
				ParentTitle: parent.Title,
				Project:     parent.Project,
				Reason:      eventbus.ReasonSequentialDependency,
				At:          o.now(),
			}, nil)
		}
	}
}

// emit publishes an event, filling common payload fields from the loaded
// item when not already set. Emission failures are cascade failures.
func (o *Orchestrator) emit(ctx context.Context, event *eventbus.Event, item *loadedItem) {
	if o.bus == nil {
		return
	}
	if item != nil {
		if event.ItemTitle == "" {
			event.ItemTitle = item.title
		}
		if event.Project == "" {
			event.Project = item.project
		}
		if event.ParentTitle == "" && item.taskID != "" {
			if parent, err := o.store.GetTask(ctx, item.taskID); err == nil {
				event.ParentTitle = parent.Title
			}
		}
	}
	if event.At.IsZero() {
		event.At = o.now()
	}
	if err := o.bus.Dispatch(ctx, event); err != nil {
		o.cascadeFailed(ctx, event.Ref, "event-dispatch", err)
	}
}

func (o *Orchestrator) count(kind types.ItemKind, from, to types.Status) {
	o.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

func (o *Orchestrator) cascadeFailed(ctx context.Context, ref types.ItemRef, step string, err error) {
	o.cascadeErrs.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	debug.Logf("lifecycle: cascade %s failed for %s: %v\n", step, ref, err)
}
