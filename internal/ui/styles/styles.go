// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Deeting TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

// Indigo - Primary accent, assistant messages, selections
var Indigo = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}

// Teal - User highlights, prompts
var Teal = lipgloss.AdaptiveColor{Light: "#0D9488", Dark: "#2DD4BF"}

// Rose - Errors, danger states
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, pending states
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Emerald - Success states, connected indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}

// TextMuted - Hints, timestamps, spinner text
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#374151"}

// =============================================================================
// STYLES
// =============================================================================

// Header styles the agent name bar at the top of the chat view.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(Indigo).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Overlay).
	Padding(0, 1)

// UserLabel styles the "you" prefix on user turns.
var UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)

// AssistantLabel styles the agent-name prefix on assistant turns.
var AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Indigo)

// MessageBody styles message content.
var MessageBody = lipgloss.NewStyle().Foreground(TextPrimary)

// Timestamp styles message timestamps.
var Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

// ErrorBanner styles the session-load and send-failure banners.
var ErrorBanner = lipgloss.NewStyle().
	Bold(true).
	Foreground(Rose).
	Padding(0, 1)

// StatusBar styles the bottom status line.
var StatusBar = lipgloss.NewStyle().
	Foreground(TextMuted).
	BorderStyle(lipgloss.NormalBorder()).
	BorderTop(true).
	BorderForeground(Overlay).
	Padding(0, 1)

// Hint styles inline key hints.
var Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

// Spinner styles the loading spinner.
var Spinner = lipgloss.NewStyle().Foreground(Indigo)

// =============================================================================
// TERMINAL CAPABILITY
// =============================================================================

// HasDarkBackground reports whether the terminal background is dark,
// driving the adaptive color selection above.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}

// ColorProfile returns the detected terminal color capability.
func ColorProfile() termenv.Profile {
	return termenv.ColorProfile()
}
