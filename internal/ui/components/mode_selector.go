// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
)

// ModeSelector shows and toggles the chat / agentic selector.
type ModeSelector struct {
	theme *styles.Theme
	mode  model.UIMode
}

// NewModeSelector creates a selector showing mode.
func NewModeSelector(theme *styles.Theme, mode model.UIMode) ModeSelector {
	return ModeSelector{theme: theme, mode: mode}
}

// Mode returns the selected mode.
func (m ModeSelector) Mode() model.UIMode { return m.mode }

// Toggle flips the selection.
func (m ModeSelector) Toggle() ModeSelector {
	m.mode = m.mode.Toggle()
	return m
}

// Set selects mode.
func (m ModeSelector) Set(mode model.UIMode) ModeSelector {
	m.mode = mode
	return m
}

// View renders both options with the selected one highlighted.
func (m ModeSelector) View() string {
	chat := m.theme.Muted.Render(" chat ")
	agentic := m.theme.Muted.Render(" agentic ")
	if m.mode == model.UIModeAgentic {
		agentic = m.theme.ModeAgentic.Render("agentic")
	} else {
		chat = m.theme.ModeChat.Render("chat")
	}
	return chat + " " + agentic
}
