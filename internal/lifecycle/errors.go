package lifecycle

import (
	"errors"
	"fmt"

	"github.com/rkoval/taskforge/internal/types"
)

// InvalidTransitionError is the gate rejection for a (from, to) pair not in
// the transition table. It is user-correctable and surfaces the specific
// rejected pair.
type InvalidTransitionError struct {
	Kind types.ItemKind
	From types.Status
	To   types.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// MissingFeedbackError reports a transition that requires feedback payload
// the caller did not supply.
type MissingFeedbackError struct {
	To     types.Status
	Detail string
}

func (e *MissingFeedbackError) Error() string {
	return fmt.Sprintf("transition to %s requires %s", e.To, e.Detail)
}

// ErrInvalidRating is returned when an approval rating is outside 1-5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// IsGateError reports whether err is a validation-side rejection (as
// opposed to a storage or collaborator failure). Gate errors occur before
// any mutation.
func IsGateError(err error) bool {
	var it *InvalidTransitionError
	var mf *MissingFeedbackError
	return errors.As(err, &it) || errors.As(err, &mf) || errors.Is(err, ErrInvalidRating)
}
