package lifecycle

import (
	"sort"

	"github.com/rkoval/taskforge/internal/types"
)

// ResolveUnlocks determines which subtasks become available for work after
// one subtask of a sequential parent is approved. It applies only when the
// parent has the sequential flag; the caller checks that.
//
// Subtasks are grouped by sequence order into levels. A level is cleared
// when every member is approved. When the approved subtask's level clears,
// the still-pending members of the next numerically higher non-empty level
// are returned as notification targets.
//
// The resolver never changes any subtask's status: unlocking is advisory.
// A subtask remains selectable by its assignee regardless of sibling
// levels; the gating is an assignment convention, not a hard lock.
func ResolveUnlocks(subtasks []*types.Subtask, approved *types.Subtask) []*types.Subtask {
	if approved.SequenceOrder == nil {
		return nil
	}
	level := *approved.SequenceOrder

	levels := make(map[int][]*types.Subtask)
	for _, s := range subtasks {
		if s.SequenceOrder == nil {
			continue
		}
		levels[*s.SequenceOrder] = append(levels[*s.SequenceOrder], s)
	}

	// The approved subtask's level must be fully cleared.
	for _, s := range levels[level] {
		if s.ID != approved.ID && s.Status != types.StatusApproved {
			return nil
		}
	}

	next, ok := nextLevel(levels, level)
	if !ok {
		return nil
	}

	var unlocked []*types.Subtask
	for _, s := range levels[next] {
		if s.Status == types.StatusPending {
			unlocked = append(unlocked, s)
		}
	}
	return unlocked
}

// nextLevel finds the smallest level strictly greater than after that has
// members.
func nextLevel(levels map[int][]*types.Subtask, after int) (int, bool) {
	var candidates []int
	for lvl := range levels {
		if lvl > after {
			candidates = append(candidates, lvl)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	sort.Ints(candidates)
	return candidates[0], true
}
