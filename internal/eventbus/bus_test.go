package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/rkoval/taskforge/internal/types"
)

type recordingHandler struct {
	id       string
	priority int
	types    []EventType
	fail     bool
	calls    *[]string
}

func (h *recordingHandler) ID() string           { return h.id }
func (h *recordingHandler) Priority() int        { return h.priority }
func (h *recordingHandler) Handles() []EventType { return h.types }

func (h *recordingHandler) Handle(_ context.Context, _ *Event) error {
	*h.calls = append(*h.calls, h.id)
	if h.fail {
		return errors.New("handler failure")
	}
	return nil
}

func TestDispatchPriorityOrder(t *testing.T) {
	bus := New()
	var calls []string
	bus.Register(&recordingHandler{id: "late", priority: 100, types: []EventType{EventItemReturned}, calls: &calls})
	bus.Register(&recordingHandler{id: "early", priority: 1, types: []EventType{EventItemReturned}, calls: &calls})

	err := bus.Dispatch(context.Background(), &Event{Type: EventItemReturned, Ref: types.SubtaskRef("tf-1.1")})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(calls) != 2 || calls[0] != "early" || calls[1] != "late" {
		t.Errorf("expected [early late], got %v", calls)
	}
}

func TestDispatchHandlerErrorDoesNotStopChain(t *testing.T) {
	bus := New()
	var calls []string
	bus.Register(&recordingHandler{id: "failing", priority: 1, types: []EventType{EventItemAvailable}, fail: true, calls: &calls})
	bus.Register(&recordingHandler{id: "after", priority: 2, types: []EventType{EventItemAvailable}, calls: &calls})

	err := bus.Dispatch(context.Background(), &Event{Type: EventItemAvailable, Ref: types.TaskRef("tf-1")})
	if err != nil {
		t.Fatalf("Dispatch returned error despite swallow policy: %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("expected both handlers called, got %v", calls)
	}
}

func TestDispatchFiltersByType(t *testing.T) {
	bus := New()
	var calls []string
	bus.Register(&recordingHandler{id: "reviews", priority: 1, types: []EventType{EventReviewRequested}, calls: &calls})

	_ = bus.Dispatch(context.Background(), &Event{Type: EventItemReassigned, Ref: types.TaskRef("tf-1")})
	if len(calls) != 0 {
		t.Errorf("handler called for unsubscribed type: %v", calls)
	}
}

func TestDispatchNilEvent(t *testing.T) {
	if err := New().Dispatch(context.Background(), nil); err == nil {
		t.Error("expected error for nil event")
	}
}
