package types

import (
	"testing"
	"time"
)

func TestStatusIsValid(t *testing.T) {
	valid := []Status{
		StatusPending, StatusAssigned, StatusInProgress, StatusBlocked,
		StatusCompleted, StatusInReview, StatusReturned, StatusApproved,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("expected %s to be valid", s)
		}
	}

	invalid := []Status{"", "open", "closed", "done", "IN_REVIEW", "Pending"}
	for _, s := range invalid {
		if s.IsValid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestItemKindIsValid(t *testing.T) {
	if !KindTask.IsValid() || !KindSubtask.IsValid() {
		t.Error("expected task and subtask kinds to be valid")
	}
	if ItemKind("issue").IsValid() || ItemKind("").IsValid() {
		t.Error("expected unknown kinds to be invalid")
	}
}

func TestTaskValidate(t *testing.T) {
	base := func() *Task {
		return &Task{
			ID:               "tf-abc123",
			Title:            "Quarterly report",
			EstimatedMinutes: 120,
			Status:           StatusPending,
			Priority:         PriorityMedium,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr bool
	}{
		{"valid", func(*Task) {}, false},
		{"empty title", func(tk *Task) { tk.Title = "" }, true},
		{"zero estimate", func(tk *Task) { tk.EstimatedMinutes = 0 }, true},
		{"negative estimate", func(tk *Task) { tk.EstimatedMinutes = -30 }, true},
		{"bad status", func(tk *Task) { tk.Status = "done" }, true},
		{"bad priority", func(tk *Task) { tk.Priority = "urgent" }, true},
		{"empty priority ok", func(tk *Task) { tk.Priority = "" }, false},
		{"rating out of range", func(tk *Task) { tk.Feedback = &Feedback{Rating: 6} }, true},
		{"rating in range", func(tk *Task) { tk.Feedback = &Feedback{Rating: 5, Comment: "good"} }, false},
		{"unset rating ok", func(tk *Task) { tk.Feedback = &Feedback{Comment: "noted"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := base()
			tt.mutate(task)
			err := task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubtaskValidate(t *testing.T) {
	seq := 0
	sub := &Subtask{
		ID:               "tf-abc123.1",
		TaskID:           "tf-abc123",
		Title:            "Draft outline",
		EstimatedMinutes: 60,
		Status:           StatusPending,
		SequenceOrder:    &seq,
	}
	if err := sub.Validate(); err == nil {
		t.Error("expected sequence_order 0 to be rejected")
	}

	seq = 1
	if err := sub.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	sub.TaskID = ""
	if err := sub.Validate(); err == nil {
		t.Error("expected missing parent to be rejected")
	}
}

func TestSetDefaults(t *testing.T) {
	task := &Task{Title: "x", EstimatedMinutes: 10}
	task.SetDefaults()
	if task.Status != StatusPending {
		t.Errorf("expected pending default, got %s", task.Status)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("expected medium default, got %s", task.Priority)
	}

	sub := &Subtask{Title: "y", TaskID: "tf-1", EstimatedMinutes: 10}
	sub.SetDefaults()
	if sub.Status != StatusPending {
		t.Errorf("expected pending default, got %s", sub.Status)
	}
}

func TestNoteRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		note *Note
	}{
		{"block reason", BlockReasonNote("waiting on vendor specs")},
		{"delivery comment", DeliveryCommentNote("uploaded to shared drive")},
		{"time breakdown", TimeBreakdownNote(&TimeBreakdown{InitialMinutes: 90})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeNote(tt.note)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeNote(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Kind != tt.note.Kind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.note.Kind)
			}
		})
	}
}

func TestNoteValidate(t *testing.T) {
	bad := []*Note{
		{Kind: NoteBlockReason},
		{Kind: NoteDeliveryComment},
		{Kind: NoteTimeBreakdown},
		{Kind: "freeform", Comment: "anything"},
	}
	for _, n := range bad {
		if err := n.Validate(); err == nil {
			t.Errorf("expected %s note to be invalid", n.Kind)
		}
	}
}

func TestDecodeNoteEmpty(t *testing.T) {
	n, err := DecodeNote(nil)
	if err != nil || n != nil {
		t.Errorf("DecodeNote(nil) = %v, %v; want nil, nil", n, err)
	}
}

func TestTimeBreakdownTotal(t *testing.T) {
	tb := &TimeBreakdown{InitialMinutes: 120}
	if tb.TotalMinutes() != 120 {
		t.Errorf("total = %d, want 120", tb.TotalMinutes())
	}

	now := time.Now()
	tb.AddRework(30, now, "formatting fixes")
	tb.AddRework(45, now, "missing section")
	if tb.TotalMinutes() != 195 {
		t.Errorf("total = %d, want 195", tb.TotalMinutes())
	}
	if len(tb.Rework) != 2 {
		t.Errorf("rework entries = %d, want 2", len(tb.Rework))
	}
}

func TestAssignmentValidate(t *testing.T) {
	a := &WorkAssignment{
		Key: AssignmentKey{
			User:   "maria",
			Date:   DateOf(time.Now()),
			Kind:   KindSubtask,
			ItemID: "tf-abc123.1",
		},
		Status:           AssignmentAssigned,
		EstimatedMinutes: 60,
	}
	if err := a.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	a.Status = "working"
	if err := a.Validate(); err == nil {
		t.Error("expected invalid assignment status to be rejected")
	}

	a.Status = AssignmentCompleted
	zero := 0
	a.ActualMinutes = &zero
	if err := a.Validate(); err == nil {
		t.Error("expected zero actual minutes to be rejected")
	}
}

func TestActorHelpers(t *testing.T) {
	if Actor("") != nil {
		t.Error("Actor(\"\") should be nil")
	}
	if got := Actor("dana"); got == nil || *got != "dana" {
		t.Errorf("Actor(dana) = %v", got)
	}
	if SystemActor() != nil {
		t.Error("SystemActor() should be nil")
	}
}
