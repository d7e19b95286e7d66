package validation

import (
	"testing"

	"github.com/rkoval/taskforge/internal/types"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    types.Status
		wantErr bool
	}{
		{"pending", types.StatusPending, false},
		{"IN_REVIEW", types.StatusInReview, false},
		{"  approved  ", types.StatusApproved, false},
		{"done", "", true},
		{"", "", true},
		{"main_completed", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q) expected error, got %s", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
	got, err := ParsePriority("High")
	if err != nil {
		t.Fatalf("ParsePriority: %v", err)
	}
	if got != types.PriorityHigh {
		t.Errorf("got %s", got)
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"1", 1, false},
		{"5", 5, false},
		{"0", 0, true},
		{"6", 0, true},
		{"great", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRating(tt.input)
		if tt.wantErr != (err != nil) {
			t.Errorf("ParseRating(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRating(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseSequenceOrder(t *testing.T) {
	got, err := ParseSequenceOrder("")
	if err != nil || got != nil {
		t.Errorf("empty input should mean unordered, got %v, %v", got, err)
	}
	got, err = ParseSequenceOrder("3")
	if err != nil || got == nil || *got != 3 {
		t.Errorf("ParseSequenceOrder(3) = %v, %v", got, err)
	}
	if _, err := ParseSequenceOrder("0"); err == nil {
		t.Error("expected error for order 0")
	}
}

func TestRefFromID(t *testing.T) {
	ref, err := RefFromID("tf-a3f8e9")
	if err != nil {
		t.Fatalf("RefFromID: %v", err)
	}
	if ref.Kind != types.KindTask {
		t.Errorf("kind = %s, want task", ref.Kind)
	}

	ref, err = RefFromID("tf-a3f8e9.2")
	if err != nil {
		t.Fatalf("RefFromID: %v", err)
	}
	if ref.Kind != types.KindSubtask {
		t.Errorf("kind = %s, want subtask", ref.Kind)
	}

	if _, err := RefFromID("nohyphen"); err == nil {
		t.Error("expected error for malformed ID")
	}
	if _, err := RefFromID(""); err == nil {
		t.Error("expected error for empty ID")
	}
}
