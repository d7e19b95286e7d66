package types

import (
	"fmt"
	"time"
)

// AssignmentStatus mirrors a simplified subset of work item status
type AssignmentStatus string

// Assignment status constants
const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentPending   AssignmentStatus = "pending"
)

// IsValid checks if the assignment status value is valid
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentAssigned, AssignmentCompleted, AssignmentPending:
		return true
	}
	return false
}

// AssignmentKey is the composite key for a work assignment: one row exists
// per (user, date, kind, item). Date is a calendar day, not an instant.
type AssignmentKey struct {
	User   string   `json:"user"`
	Date   string   `json:"date"` // YYYY-MM-DD
	Kind   ItemKind `json:"kind"`
	ItemID string   `json:"item_id"`
}

func (k AssignmentKey) String() string {
	return fmt.Sprintf("%s/%s/%s:%s", k.User, k.Date, k.Kind, k.ItemID)
}

// DateOf formats a time as an assignment-key date.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// WorkAssignment ties a user to an item for one day of effort tracking.
// Rows are upserted on key conflict.
type WorkAssignment struct {
	Key              AssignmentKey    `json:"key"`
	Status           AssignmentStatus `json:"status"`
	EstimatedMinutes int              `json:"estimated_minutes"`
	ActualMinutes    *int             `json:"actual_minutes,omitempty"`
	Breakdown        *TimeBreakdown   `json:"breakdown,omitempty"`
	Note             string           `json:"note,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Validate checks if the assignment has valid field values
func (a *WorkAssignment) Validate() error {
	if a.Key.User == "" {
		return fmt.Errorf("assignment user is required")
	}
	if a.Key.Date == "" {
		return fmt.Errorf("assignment date is required")
	}
	if !a.Key.Kind.IsValid() {
		return fmt.Errorf("invalid item kind: %s", a.Key.Kind)
	}
	if a.Key.ItemID == "" {
		return fmt.Errorf("assignment item id is required")
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("invalid assignment status: %s", a.Status)
	}
	if a.ActualMinutes != nil && *a.ActualMinutes <= 0 {
		return fmt.Errorf("actual_minutes must be positive")
	}
	return nil
}

// WorkSession is a recorded unit of logged work. Its existence is the guard
// for reassignment and unblock cleanup: rows that have sessions are never
// deleted.
type WorkSession struct {
	ID       string    `json:"id"`
	User     string    `json:"user"`
	Date     string    `json:"date"`
	Kind     ItemKind  `json:"kind"`
	ItemID   string    `json:"item_id"`
	Minutes  int       `json:"minutes"`
	Note     string    `json:"note,omitempty"`
	LoggedAt time.Time `json:"logged_at"`
}

// AssignmentFilter is used to filter assignment queries
type AssignmentFilter struct {
	User   string
	Date   string
	Kind   ItemKind
	ItemID string
	Status *AssignmentStatus
	Limit  int
}
