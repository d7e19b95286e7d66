package eventbus

import (
	"time"

	"github.com/rkoval/taskforge/internal/types"
)

// EventType identifies an event flowing through the bus.
type EventType string

const (
	// EventStatusChanged fires on every validated transition, including the
	// system-triggered parent approval cascade.
	EventStatusChanged EventType = "status_changed"

	// EventItemAvailable fires when an item becomes workable for its
	// assignee: a sequential level cleared, or an unblock.
	EventItemAvailable EventType = "item_available"

	// EventReviewRequested fires when a user moves an item to in_review.
	EventReviewRequested EventType = "review_requested"

	// EventItemReturned fires when a reviewer returns an item with feedback.
	EventItemReturned EventType = "item_returned"

	// EventItemReassigned fires when an admin changes an item's assignee.
	EventItemReassigned EventType = "item_reassigned"
)

// Reason codes carried on events that notify users.
const (
	ReasonUnblocked            = "unblocked"
	ReasonReassigned           = "reassigned"
	ReasonReturned             = "returned"
	ReasonSequentialDependency = "sequential_dependency_completed"
)

// Event is a single lifecycle event flowing through the bus. Fields beyond
// Type/Ref are populated per event type; handlers tolerate absent fields.
type Event struct {
	Type EventType     `json:"type"`
	Ref  types.ItemRef `json:"ref"`

	// Actor is empty for system-triggered events.
	Actor    string       `json:"actor,omitempty"`
	Previous types.Status `json:"previous,omitempty"`
	New      types.Status `json:"new,omitempty"`

	// Users are the notification targets for this event.
	Users []string `json:"users,omitempty"`

	ItemTitle   string `json:"item_title,omitempty"`
	ParentTitle string `json:"parent_title,omitempty"` // set when Ref is a subtask
	Project     string `json:"project,omitempty"`
	Reason      string `json:"reason,omitempty"`

	At time.Time `json:"at"`
}
