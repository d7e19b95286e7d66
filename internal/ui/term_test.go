package ui

import (
	"strings"
	"testing"
)

func TestTermWidthHasFallback(t *testing.T) {
	if w := TermWidth(); w <= 0 {
		t.Errorf("TermWidth() = %d, want > 0", w)
	}
}

func TestColorEnabledHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ColorEnabled() {
		t.Error("ColorEnabled() = true with NO_COLOR set")
	}
}

func TestRenderSeparatorSizedToTerminal(t *testing.T) {
	sep := RenderSeparator()
	if sep == "" {
		t.Fatal("RenderSeparator() returned empty string")
	}
	n := strings.Count(sep, "─")
	if n <= 0 || n > separatorMaxWidth {
		t.Errorf("separator rune count = %d, want 1..%d", n, separatorMaxWidth)
	}
}
