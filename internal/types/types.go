// Package types defines core data structures for the taskforge lifecycle engine.
package types

import (
	"fmt"
	"time"
)

// Status represents the current state of a work item
type Status string

// Work item status constants
const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusInReview   Status = "in_review"
	StatusReturned   Status = "returned"
	StatusApproved   Status = "approved"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusBlocked,
		StatusCompleted, StatusInReview, StatusReturned, StatusApproved:
		return true
	}
	return false
}

// ItemKind distinguishes tasks from subtasks
type ItemKind string

// Item kind constants
const (
	KindTask    ItemKind = "task"
	KindSubtask ItemKind = "subtask"
)

// IsValid checks if the item kind value is valid
func (k ItemKind) IsValid() bool {
	return k == KindTask || k == KindSubtask
}

// ItemRef identifies a work item by kind and ID. Assignment rows and
// history rows key on it.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// TaskRef returns an ItemRef for a task ID.
func TaskRef(id string) ItemRef { return ItemRef{Kind: KindTask, ID: id} }

// SubtaskRef returns an ItemRef for a subtask ID.
func SubtaskRef(id string) ItemRef { return ItemRef{Kind: KindSubtask, ID: id} }

// Priority categorizes task urgency
type Priority string

// Priority constants (task-level only)
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Feedback is a reviewer's structured comment on a delivered item.
// Rating is 1-5; zero means no rating was given.
type Feedback struct {
	Comment  string    `json:"comment,omitempty"`
	Rating   int       `json:"rating,omitempty"`
	Reviewer string    `json:"reviewer,omitempty"`
	At       time.Time `json:"at,omitempty"`
}

// Task represents a top-level trackable work item
type Task struct {
	ID               string   `json:"id"`
	Project          string   `json:"project,omitempty"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	Status           Status   `json:"status,omitempty"`
	Priority         Priority `json:"priority,omitempty"`
	Sequential       bool     `json:"sequential,omitempty"`
	// Assignees is meaningful only for tasks without subtasks; a task with
	// subtasks is worked through them and carries no direct assignees.
	Assignees []string   `json:"assignees,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Feedback  *Feedback  `json:"feedback,omitempty"`
	Notes     *Note      `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if len(t.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(t.Title))
	}
	if t.EstimatedMinutes <= 0 {
		return fmt.Errorf("estimated_minutes must be positive (got %d)", t.EstimatedMinutes)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	if t.Feedback != nil && t.Feedback.Rating != 0 && (t.Feedback.Rating < 1 || t.Feedback.Rating > 5) {
		return fmt.Errorf("feedback rating must be between 1 and 5 (got %d)", t.Feedback.Rating)
	}
	return nil
}

// SetDefaults applies default values for fields omitted at creation:
//   - Status: defaults to StatusPending (items are created pending)
//   - Priority: defaults to PriorityMedium
func (t *Task) SetDefaults() {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// Ref returns the item reference for this task.
func (t *Task) Ref() ItemRef { return TaskRef(t.ID) }

// Subtask represents a child work item. A subtask always references
// exactly one parent task via TaskID.
type Subtask struct {
	ID               string `json:"id"`
	TaskID           string `json:"task_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Status           Status `json:"status,omitempty"`
	// SequenceOrder groups subtasks into ordered levels; meaningful only
	// when the parent task is sequential. Nil means unordered.
	SequenceOrder *int       `json:"sequence_order,omitempty"`
	Assignee      string     `json:"assignee,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	Feedback      *Feedback  `json:"feedback,omitempty"`
	Notes         *Note      `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validate checks if the subtask has valid field values
func (s *Subtask) Validate() error {
	if len(s.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(s.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(s.Title))
	}
	if s.TaskID == "" {
		return fmt.Errorf("subtask must reference a parent task")
	}
	if s.EstimatedMinutes <= 0 {
		return fmt.Errorf("estimated_minutes must be positive (got %d)", s.EstimatedMinutes)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", s.Status)
	}
	if s.SequenceOrder != nil && *s.SequenceOrder < 1 {
		return fmt.Errorf("sequence_order must be >= 1 (got %d)", *s.SequenceOrder)
	}
	if s.Feedback != nil && s.Feedback.Rating != 0 && (s.Feedback.Rating < 1 || s.Feedback.Rating > 5) {
		return fmt.Errorf("feedback rating must be between 1 and 5 (got %d)", s.Feedback.Rating)
	}
	return nil
}

// SetDefaults applies default values for fields omitted at creation
func (s *Subtask) SetDefaults() {
	if s.Status == "" {
		s.Status = StatusPending
	}
}

// Ref returns the item reference for this subtask.
func (s *Subtask) Ref() ItemRef { return SubtaskRef(s.ID) }

// TaskFilter is used to filter task queries
type TaskFilter struct {
	Status      *Status
	Priority    *Priority
	Project     string
	Assignee    *string
	Sequential  *bool
	TitleSearch string
	Limit       int
}

// SubtaskFilter is used to filter subtask queries
type SubtaskFilter struct {
	TaskID   string
	Status   *Status
	Assignee *string
	Limit    int
}
