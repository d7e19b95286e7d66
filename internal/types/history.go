package types

import "time"

// StatusHistoryEntry is one row of an item's audit trail. Entries are
// normally append-only; the two cancellation transitions (review cancel,
// unblock) retract the most recent matching entry instead of appending.
type StatusHistoryEntry struct {
	ID     int64    `json:"id"`
	Kind   ItemKind `json:"kind"`
	ItemID string   `json:"item_id"`
	// TaskID is set for subtask entries so a parent's trail can be read in
	// one query.
	TaskID string `json:"task_id,omitempty"`
	// ChangedBy is nil for system-triggered changes (parent auto-approval).
	ChangedBy      *string          `json:"changed_by,omitempty"`
	PreviousStatus Status           `json:"previous_status"`
	NewStatus      Status           `json:"new_status"`
	ChangedAt      time.Time        `json:"changed_at"`
	Metadata       *HistoryMetadata `json:"metadata,omitempty"`
}

// HistoryMetadata carries the structured reason or feedback attached to a
// status change.
type HistoryMetadata struct {
	Reason   string    `json:"reason,omitempty"`
	Feedback *Feedback `json:"feedback,omitempty"`
}

// SystemActor marks a history entry as system-triggered.
// Passing nil ChangedBy means the same thing; this helper exists for call
// sites that want to be explicit.
func SystemActor() *string { return nil }

// Actor wraps a user ID for the ChangedBy field.
func Actor(user string) *string {
	if user == "" {
		return nil
	}
	return &user
}
