package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

// Recorder writes the status-history audit trail. The default is append;
// the two cancellation transitions retract instead: they mean "that earlier
// event should not have counted", so the trail is corrected rather than
// extended.
type Recorder struct {
	store storage.Storage
	now   func() time.Time
}

// NewRecorder creates a history recorder over the given store.
func NewRecorder(store storage.Storage) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record writes the history effect of a validated transition.
//
//   - in_review -> completed: delete the most recent entry with
//     new_status = in_review for the item (a review cancel).
//   - blocked -> pending: delete the most recent entry with
//     new_status = blocked for the item (an unblock).
//   - everything else: append a new entry.
//
// taskID is the parent for subtask items, empty for tasks. changedBy nil
// marks a system-triggered change.
func (r *Recorder) Record(ctx context.Context, ref types.ItemRef, taskID string, changedBy *string, from, to types.Status, meta *types.HistoryMetadata) error {
	if IsCancellation(from, to) {
		if err := r.store.RetractHistory(ctx, ref, from); err != nil {
			return fmt.Errorf("failed to retract history for %s: %w", ref, err)
		}
		return nil
	}

	entry := &types.StatusHistoryEntry{
		Kind:           ref.Kind,
		ItemID:         ref.ID,
		TaskID:         taskID,
		ChangedBy:      changedBy,
		PreviousStatus: from,
		NewStatus:      to,
		ChangedAt:      r.now(),
		Metadata:       meta,
	}
	if err := r.store.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append history for %s: %w", ref, err)
	}
	return nil
}
