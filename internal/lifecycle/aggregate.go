package lifecycle

import "github.com/rkoval/taskforge/internal/types"

// AggregateStatus is the read-side projection of a parent task's status
// computed from its subtasks. It is never persisted: only real subtask
// statuses are canonical.
type AggregateStatus string

// Aggregate status constants
const (
	AggregatePending    AggregateStatus = "pending"
	AggregateInProgress AggregateStatus = "in_progress"
	AggregateBlocked    AggregateStatus = "blocked"
	AggregateInReview   AggregateStatus = "in_review"
	// AggregateCompleted renders as "main_completed" at the display layer.
	AggregateCompleted AggregateStatus = "completed"
)

// Progress holds subtask completion percentages for a parent task.
type Progress struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Delivered    int     `json:"delivered"` // approved + completed
	ApprovedPct  float64 `json:"approved_pct"`
	DeliveredPct float64 `json:"delivered_pct"`
}

// Aggregate derives a task's effective display status from its subtasks,
// or from its own status when none exist. Rules apply in priority order;
// notably any in_review subtask wins over blocked/returned siblings.
// Idempotent: the same subtask set always yields the same aggregate.
func Aggregate(task *types.Task, subtasks []*types.Subtask) AggregateStatus {
	if len(subtasks) == 0 {
		return aggregateOwn(task.Status)
	}

	allApproved := true
	anyInReview := false
	anyBlockedOrReturned := false
	anyStarted := false

	for _, s := range subtasks {
		if s.Status != types.StatusApproved {
			allApproved = false
		}
		switch s.Status {
		case types.StatusInReview:
			anyInReview = true
		case types.StatusBlocked, types.StatusReturned:
			anyBlockedOrReturned = true
		case types.StatusInProgress, types.StatusCompleted, types.StatusApproved:
			anyStarted = true
		}
	}

	switch {
	case allApproved:
		return AggregateCompleted
	case anyInReview:
		return AggregateInReview
	case anyBlockedOrReturned:
		return AggregateBlocked
	case anyStarted:
		return AggregateInProgress
	default:
		return AggregatePending
	}
}

// aggregateOwn maps a task's own status to a display status when it has no
// subtasks.
func aggregateOwn(s types.Status) AggregateStatus {
	switch s {
	case types.StatusApproved:
		return AggregateCompleted
	case types.StatusInReview, types.StatusCompleted:
		return AggregateInReview
	case types.StatusBlocked, types.StatusReturned:
		return AggregateBlocked
	case types.StatusAssigned:
		return AggregateInProgress
	default:
		return AggregatePending
	}
}

// ComputeProgress computes subtask completion percentages. Zero subtasks
// yields zero percentages.
func ComputeProgress(subtasks []*types.Subtask) Progress {
	p := Progress{Total: len(subtasks)}
	if p.Total == 0 {
		return p
	}
	for _, s := range subtasks {
		switch s.Status {
		case types.StatusApproved:
			p.Approved++
			p.Delivered++
		case types.StatusCompleted:
			p.Delivered++
		}
	}
	p.ApprovedPct = float64(p.Approved) / float64(p.Total)
	p.DeliveredPct = float64(p.Delivered) / float64(p.Total)
	return p
}
