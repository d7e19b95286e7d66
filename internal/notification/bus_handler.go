package notification

import (
	"context"

	"github.com/rkoval/taskforge/internal/eventbus"
)

// BusHandler bridges lifecycle events from the bus into the dispatcher.
// It subscribes to every event type that notifies a user or an admin.
type BusHandler struct {
	dispatcher *Dispatcher
}

// NewBusHandler creates the bus-to-dispatcher bridge.
func NewBusHandler(d *Dispatcher) *BusHandler {
	return &BusHandler{dispatcher: d}
}

// ID returns the handler identifier.
func (h *BusHandler) ID() string { return "notification-dispatch" }

// Handles returns the event types this handler processes.
func (h *BusHandler) Handles() []eventbus.EventType {
	return []eventbus.EventType{
		eventbus.EventItemAvailable,
		eventbus.EventReviewRequested,
		eventbus.EventItemReturned,
		eventbus.EventItemReassigned,
	}
}

// Priority runs notifications after any logging handlers.
func (h *BusHandler) Priority() int { return 50 }

// Handle converts an event to a notification payload and dispatches it.
// Events without targets are dropped silently.
func (h *BusHandler) Handle(ctx context.Context, event *eventbus.Event) error {
	if len(event.Users) == 0 {
		return nil
	}

	payload := &Payload{
		Kind:        kindFor(event.Type),
		ItemID:      event.Ref.ID,
		ItemTitle:   event.ItemTitle,
		Project:     event.Project,
		Users:       event.Users,
		Reason:      event.Reason,
		ParentTitle: event.ParentTitle,
		SentAt:      event.At,
	}
	h.dispatcher.Dispatch(ctx, payload)
	return nil
}

func kindFor(t eventbus.EventType) Kind {
	switch t {
	case eventbus.EventItemAvailable:
		return KindTaskAvailable
	case eventbus.EventReviewRequested:
		return KindUserReviewRequest
	default:
		return KindAdminAction
	}
}
