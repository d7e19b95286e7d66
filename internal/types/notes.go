package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NoteKind tags the variant carried by a Note
type NoteKind string

// Note kind constants
const (
	NoteBlockReason     NoteKind = "block_reason"
	NoteDeliveryComment NoteKind = "delivery_comment"
	NoteTimeBreakdown   NoteKind = "time_breakdown"
)

// Note is a tagged variant replacing the historical free-form notes field.
// Exactly one of the payload fields is set, chosen by Kind. The variant is
// decoded once at the storage boundary; engine code switches on Kind.
type Note struct {
	Kind      NoteKind       `json:"kind"`
	Reason    string         `json:"reason,omitempty"`    // block_reason
	Comment   string         `json:"comment,omitempty"`   // delivery_comment
	Breakdown *TimeBreakdown `json:"breakdown,omitempty"` // time_breakdown
}

// BlockReasonNote builds a block-reason note.
func BlockReasonNote(reason string) *Note {
	return &Note{Kind: NoteBlockReason, Reason: reason}
}

// DeliveryCommentNote builds a delivery-comment note.
func DeliveryCommentNote(comment string) *Note {
	return &Note{Kind: NoteDeliveryComment, Comment: comment}
}

// TimeBreakdownNote wraps a time breakdown in a note.
func TimeBreakdownNote(tb *TimeBreakdown) *Note {
	return &Note{Kind: NoteTimeBreakdown, Breakdown: tb}
}

// Validate checks that the note payload matches its kind tag.
func (n *Note) Validate() error {
	switch n.Kind {
	case NoteBlockReason:
		if n.Reason == "" {
			return fmt.Errorf("block_reason note requires a reason")
		}
	case NoteDeliveryComment:
		if n.Comment == "" {
			return fmt.Errorf("delivery_comment note requires a comment")
		}
	case NoteTimeBreakdown:
		if n.Breakdown == nil {
			return fmt.Errorf("time_breakdown note requires a breakdown")
		}
	default:
		return fmt.Errorf("unknown note kind: %s", n.Kind)
	}
	return nil
}

// DecodeNote parses a stored note payload. Empty input yields nil (no note).
func DecodeNote(data []byte) (*Note, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode note: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// EncodeNote serializes a note for storage. Nil yields nil.
func EncodeNote(n *Note) ([]byte, error) {
	if n == nil {
		return nil, nil
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// ReworkEntry is one redo cycle's recorded effort
type ReworkEntry struct {
	Minutes int       `json:"minutes"`
	Date    time.Time `json:"date"`
	Reason  string    `json:"reason,omitempty"`
}

// TimeBreakdown accumulates effort across return/redo cycles on the same
// item. The initial completion seeds InitialMinutes; each later completion
// appends a rework entry rather than overwriting the total.
type TimeBreakdown struct {
	InitialMinutes int           `json:"initial_minutes"`
	Rework         []ReworkEntry `json:"rework,omitempty"`
}

// TotalMinutes returns initial plus all rework effort.
func (tb *TimeBreakdown) TotalMinutes() int {
	total := tb.InitialMinutes
	for _, r := range tb.Rework {
		total += r.Minutes
	}
	return total
}

// AddRework appends a redo cycle's effort.
func (tb *TimeBreakdown) AddRework(minutes int, date time.Time, reason string) {
	tb.Rework = append(tb.Rework, ReworkEntry{Minutes: minutes, Date: date, Reason: reason})
}
