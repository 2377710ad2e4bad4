// Package styles defines the shared lipgloss palette for CLI output.
// The colors are picked for dark terminal backgrounds with good contrast.
package styles

import "github.com/charmbracelet/lipgloss"

const (
	// ColorSuccess is green - used for completed operations.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red - used for failures.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber - used for progress notes and caution states.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorInfo is blue - used for neutral status output.
	ColorInfo = lipgloss.Color("#3B82F6")

	// ColorMuted is gray - used for de-emphasized detail.
	ColorMuted = lipgloss.Color("#6B7280")
)

// Base styles built from the palette. Commands render their human output
// through these so the tool keeps one voice.
var (
	// Title is for primary headers.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorInfo)

	// Success is for success messages.
	Success = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	// Error is for error messages.
	Error = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorError)

	// Warning is for warnings and in-progress notes.
	Warning = lipgloss.NewStyle().
		Foreground(ColorWarning)

	// Info is for neutral progress output.
	Info = lipgloss.NewStyle().
		Foreground(ColorInfo)

	// Muted is for secondary text.
	Muted = lipgloss.NewStyle().
		Foreground(ColorMuted)
)
