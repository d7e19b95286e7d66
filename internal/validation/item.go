// Package validation parses and validates boundary input: status, kind,
// priority, and rating strings arriving from the CLI or config before they
// reach the engine. Unknown values are rejected here, never defaulted.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rkoval/taskforge/internal/types"
)

// ParseStatus validates a status string.
// Returns an error naming the valid set if invalid.
func ParseStatus(content string) (types.Status, error) {
	status := types.Status(strings.ToLower(strings.TrimSpace(content)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status %q (expected one of: pending, assigned, in_progress, blocked, completed, in_review, returned, approved)", content)
	}
	return status, nil
}

// ParseKind validates an item kind string.
func ParseKind(content string) (types.ItemKind, error) {
	kind := types.ItemKind(strings.ToLower(strings.TrimSpace(content)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid item kind %q (expected task or subtask)", content)
	}
	return kind, nil
}

// ParsePriority validates a priority string. Priorities are words here,
// not numbers.
func ParsePriority(content string) (types.Priority, error) {
	priority := types.Priority(strings.ToLower(strings.TrimSpace(content)))
	if !priority.IsValid() {
		return "", fmt.Errorf("invalid priority %q (expected low, medium, or high)", content)
	}
	return priority, nil
}

// ParseRating validates a review rating string. Empty input means no
// rating and returns 0.
func ParseRating(content string) (int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, nil
	}
	rating, err := strconv.Atoi(content)
	if err != nil || rating < 1 || rating > 5 {
		return 0, fmt.Errorf("invalid rating %q (expected 1-5)", content)
	}
	return rating, nil
}

// ParseSequenceOrder validates a sequence order string. Empty input means
// unordered and returns nil.
func ParseSequenceOrder(content string) (*int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	order, err := strconv.Atoi(content)
	if err != nil || order < 1 {
		return nil, fmt.Errorf("invalid sequence order %q (expected an integer >= 1)", content)
	}
	return &order, nil
}

// ValidateIDFormat checks that an item ID follows the tf-hash or
// tf-hash.number pattern and returns the prefix part.
func ValidateIDFormat(id string) (string, error) {
	if id == "" {
		return "", nil
	}
	if !strings.Contains(id, "-") {
		return "", fmt.Errorf("invalid ID format %q (expected prefix-hash or prefix-hash.number, e.g. tf-a3f8e9 or tf-a3f8e9.1)", id)
	}
	return id[:strings.Index(id, "-")], nil
}

// RefFromID builds an ItemRef from a raw ID, inferring the kind: IDs with
// a dotted suffix are subtasks.
func RefFromID(id string) (types.ItemRef, error) {
	if _, err := ValidateIDFormat(id); err != nil {
		return types.ItemRef{}, err
	}
	if id == "" {
		return types.ItemRef{}, fmt.Errorf("item ID is required")
	}
	if strings.Contains(id, ".") {
		return types.SubtaskRef(id), nil
	}
	return types.TaskRef(id), nil
}
