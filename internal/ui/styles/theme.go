// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the composed styles of the TUI.
type Theme struct {
	// ==========================================================================
	// FRAME
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	StatusBar   lipgloss.Style
	Muted       lipgloss.Style
	Title       lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar        lipgloss.Style
	SidebarFocused lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarActive  lipgloss.Style
	SidebarCursor  lipgloss.Style
	Stale          lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	SystemLabel     lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style
	PendingMarker   lipgloss.Style
	LocalBubble     lipgloss.Style
	Attachment      lipgloss.Style

	// ==========================================================================
	// MODE BADGES
	// ==========================================================================

	ModeChat    lipgloss.Style
	ModeAgentic lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	Input       lipgloss.Style
	InputPrompt lipgloss.Style
	Error       lipgloss.Style
}

// NewTheme builds the default theme.
func NewTheme() *Theme {
	t := &Theme{}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Title = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarFocused = t.Sidebar.BorderForeground(Cyan)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SidebarActive = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.SidebarCursor = lipgloss.NewStyle().Background(SelectionBg).Foreground(TextPrimary)
	t.Stale = lipgloss.NewStyle().Foreground(Amber).Italic(true)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.SystemLabel = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.UserBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)
	t.SystemBubble = t.AssistantBubble.BorderForeground(SystemBubbleBorder)
	t.LocalBubble = t.AssistantBubble.BorderForeground(Rose).Foreground(Rose)
	t.PendingMarker = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Attachment = lipgloss.NewStyle().Foreground(LinkColor)

	t.ModeChat = lipgloss.NewStyle().
		Background(Cyan).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)
	t.ModeAgentic = t.ModeChat.Background(Purple)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Error = lipgloss.NewStyle().Foreground(Rose)

	return t
}

// DisableColor switches lipgloss to plain ASCII output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
