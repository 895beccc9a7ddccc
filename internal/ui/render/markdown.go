// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant replies into terminal output.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Glamour style names.
const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// DetectStyle picks the glamour style for the current terminal. It queries
// the terminal, so call it before a Bubble Tea program takes over stdin.
func DetectStyle(color bool) string {
	if !color {
		return StyleNoTTY
	}
	if termenv.HasDarkBackground() {
		return StyleDark
	}
	return StyleLight
}

// Markdown renders markdown with glamour, rebuilding the renderer when the
// wrap width changes. Safe for concurrent use.
type Markdown struct {
	mu      sync.Mutex
	enabled bool
	style   string
	width   int
	tr      *glamour.TermRenderer
}

// NewMarkdown creates a renderer. When enabled is false, Render returns
// its input unchanged.
func NewMarkdown(enabled bool, style string, width int) *Markdown {
	if style == "" {
		style = StyleNoTTY
	}
	return &Markdown{enabled: enabled, style: style, width: width}
}

// SetWidth sets the wrap width.
func (m *Markdown) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width != m.width {
		m.width = width
		m.tr = nil
	}
}

// Render renders md. On any glamour error the input is returned as is.
func (m *Markdown) Render(md string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled || strings.TrimSpace(md) == "" {
		return md
	}
	if m.tr == nil {
		width := m.width
		if width < 20 {
			width = 20
		}
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.enabled = false
			return md
		}
		m.tr = tr
	}
	out, err := m.tr.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
