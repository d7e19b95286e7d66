package timeparsing

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestParseCompactDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"+6h", testNow.Add(6 * time.Hour)},
		{"-1d", testNow.AddDate(0, 0, -1)},
		{"+2w", testNow.AddDate(0, 0, 14)},
		{"3m", testNow.AddDate(0, 3, 0)},
		{"1y", testNow.AddDate(1, 0, 0)},
	}
	for _, tt := range tests {
		got, err := ParseCompactDuration(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseCompactDuration(%q): %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseCompactDuration("6 hours", testNow); err == nil {
		t.Error("expected error for non-compact input")
	}
}

func TestParseDateLayers(t *testing.T) {
	// Compact duration layer.
	got, err := ParseDate("+1d", testNow)
	if err != nil {
		t.Fatalf("ParseDate(+1d): %v", err)
	}
	if !got.Equal(testNow.AddDate(0, 0, 1)) {
		t.Errorf("compact layer: got %v", got)
	}

	// Absolute date-only layer.
	got, err = ParseDate("2026-04-01", testNow)
	if err != nil {
		t.Fatalf("ParseDate(2026-04-01): %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.April || got.Day() != 1 {
		t.Errorf("absolute layer: got %v", got)
	}

	// Natural language layer.
	got, err = ParseDate("tomorrow", testNow)
	if err != nil {
		t.Fatalf("ParseDate(tomorrow): %v", err)
	}
	if got.Day() != testNow.AddDate(0, 0, 1).Day() {
		t.Errorf("natural layer: got %v", got)
	}

	if _, err := ParseDate("the heat death of the universe", testNow); err == nil {
		t.Error("expected error for unrecognized expression")
	}
	if _, err := ParseDate("  ", testNow); err == nil {
		t.Error("expected error for empty expression")
	}
}

func TestParseWorkMinutes(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"90m", 90, false},
		{"2h30m", 150, false},
		{"3h", 180, false},
		{"45", 45, false},
		{"2H30M", 150, false},
		{"1.5h", 90, false},
		{"0.5h", 30, false},
		{"1.5h15m", 105, false},
		{"1.h", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWorkMinutes(tt.input)
		if tt.wantErr != (err != nil) {
			t.Errorf("ParseWorkMinutes(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWorkMinutes(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{45, "45m"},
		{60, "1h"},
		{90, "1h30m"},
		{195, "3h15m"},
	}
	for _, tt := range tests {
		if got := FormatMinutes(tt.minutes); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %s, want %s", tt.minutes, got, tt.want)
		}
	}
}
