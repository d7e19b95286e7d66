package main

import (
	"context"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/eventbus"
)

// eventLogHandler appends every bus event to the workspace event log.
// It runs after the notification handler; failures are silent.
type eventLogHandler struct {
	dir string
}

func (h eventLogHandler) ID() string    { return "event-log" }
func (h eventLogHandler) Priority() int { return 100 }

func (h eventLogHandler) Handles() []eventbus.EventType {
	return []eventbus.EventType{
		eventbus.EventStatusChanged,
		eventbus.EventItemAvailable,
		eventbus.EventReviewRequested,
		eventbus.EventItemReturned,
		eventbus.EventItemReassigned,
	}
}

func (h eventLogHandler) Handle(_ context.Context, e *eventbus.Event) error {
	details := e.Reason
	if e.Type == eventbus.EventStatusChanged {
		details = string(e.Previous) + "->" + string(e.New)
	}
	debug.LogEvent(h.dir, string(e.Type), e.Ref.ID, e.Actor, details)
	return nil
}
