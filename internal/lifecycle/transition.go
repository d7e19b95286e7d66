// Package lifecycle implements the task/subtask state machine: the
// transition gate, parent-status aggregation, sequential-dependency
// resolution, history recording, and the orchestrator tying them together.
package lifecycle

import (
	"strings"

	"github.com/rkoval/taskforge/internal/types"
)

// transitionTable holds the allowed explicit transitions. Everything else is
// rejected. assigned, in_progress, and initial creation are reached through
// side channels (work-assignment creation, block), not through this table:
// the table only governs the review loop and the unblock path.
var transitionTable = map[types.Status][]types.Status{
	types.StatusCompleted: {types.StatusInReview},
	types.StatusBlocked:   {types.StatusPending},
	types.StatusInReview:  {types.StatusReturned, types.StatusApproved, types.StatusCompleted},
}

// TransitionPayload carries the optional feedback supplied with a requested
// transition.
type TransitionPayload struct {
	Comment string
	// Rating is 1-5; zero means no rating supplied.
	Rating int
}

// ValidateTransition is the pure transition gate. It never reads storage;
// callers supply the item's current status. On denial the returned error
// names the rejected pair.
func ValidateTransition(kind types.ItemKind, from, to types.Status, payload TransitionPayload) error {
	if !allowed(from, to) {
		return &InvalidTransitionError{Kind: kind, From: from, To: to}
	}

	switch to {
	case types.StatusReturned:
		// Return without feedback gives the assignee nothing to act on.
		if strings.TrimSpace(payload.Comment) == "" {
			return &MissingFeedbackError{To: to, Detail: "a non-empty feedback comment"}
		}
	case types.StatusApproved:
		if payload.Rating != 0 && (payload.Rating < 1 || payload.Rating > 5) {
			return ErrInvalidRating
		}
	}

	return nil
}

func allowed(from, to types.Status) bool {
	for _, t := range transitionTable[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the valid targets from a given status. Used by the
// CLI to explain rejections; the empty slice means no explicit transition
// leaves this status.
func AllowedTargets(from types.Status) []types.Status {
	return append([]types.Status(nil), transitionTable[from]...)
}

// IsCancellation reports whether a (from, to) pair is one of the two
// deliberate cancellations whose history is retracted rather than appended:
// review cancel (in_review -> completed) and unblock (blocked -> pending).
func IsCancellation(from, to types.Status) bool {
	return (from == types.StatusInReview && to == types.StatusCompleted) ||
		(from == types.StatusBlocked && to == types.StatusPending)
}
