// Package ui provides terminal styling for tf CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rkoval/taskforge/internal/types"
)

// Ayu theme color palette
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

// Status styles - consistent across all commands
var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
)

// CategoryStyle for section headers - bold with accent color
var CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

// Tree characters for hierarchical display
const (
	TreeChild  = "⎿ "
	TreeLast   = "└─ "
	TreeIndent = "  "
)

// separatorMaxWidth caps the section separator so wide terminals do not
// get a full-width rule.
const separatorMaxWidth = 60

// RenderStatus renders a work item status with semantic coloring: approved
// and completed are green, blocked and returned red, in_review yellow,
// everything else muted.
func RenderStatus(status types.Status) string {
	s := string(status)
	switch status {
	case types.StatusApproved, types.StatusCompleted:
		return PassStyle.Render(s)
	case types.StatusBlocked, types.StatusReturned:
		return FailStyle.Render(s)
	case types.StatusInReview:
		return WarnStyle.Render(s)
	case types.StatusInProgress:
		return AccentStyle.Render(s)
	default:
		return MutedStyle.Render(s)
	}
}

// RenderPriority renders a task priority with coloring.
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityHigh:
		return FailStyle.Render(string(p))
	case types.PriorityLow:
		return MutedStyle.Render(string(p))
	default:
		return string(p)
	}
}

// RenderPass renders text with pass (green) styling
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderWarn renders text with warning (yellow) styling
func RenderWarn(s string) string {
	return WarnStyle.Render(s)
}

// RenderFail renders text with fail (red) styling
func RenderFail(s string) string {
	return FailStyle.Render(s)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text with accent (blue) styling
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderCategory renders a category header in uppercase with accent color
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders a muted separator line sized to the terminal
func RenderSeparator() string {
	width := TermWidth()
	if width > separatorMaxWidth {
		width = separatorMaxWidth
	}
	return MutedStyle.Render(strings.Repeat("─", width))
}
