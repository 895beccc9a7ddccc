// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
	"github.com/AnuGuin/LegalAI/internal/util"
)

// Sidebar renders the conversation history list. It is a value type; the
// owning model replaces it on every update.
type Sidebar struct {
	theme    *styles.Theme
	items    []*model.Conversation
	activeID string
	cursor   int
	stale    bool
	syncedAt time.Time
	loading  bool
	focused  bool
	width    int
}

// NewSidebar creates an empty sidebar width cells wide.
func NewSidebar(theme *styles.Theme, width int) Sidebar {
	return Sidebar{theme: theme, width: width}
}

// SetItems replaces the list. The cursor is clamped and follows the
// active conversation when the sidebar is not focused.
func (s Sidebar) SetItems(items []*model.Conversation, activeID string, stale, loading bool) Sidebar {
	s.items = items
	s.activeID = activeID
	s.stale = stale
	s.loading = loading
	if !s.focused {
		for i, c := range items {
			if c.ID == activeID {
				s.cursor = i
			}
		}
	}
	s.cursor = clamp(s.cursor, 0, len(items)-1)
	return s
}

// SetSyncedAt records when the offline copy was cached. A zero time hides
// the age line.
func (s Sidebar) SetSyncedAt(t time.Time) Sidebar {
	s.syncedAt = t
	return s
}

// SetFocused toggles keyboard focus.
func (s Sidebar) SetFocused(f bool) Sidebar {
	s.focused = f
	return s
}

// Focused reports whether the sidebar has focus.
func (s Sidebar) Focused() bool { return s.focused }

// SetWidth changes the outer width.
func (s Sidebar) SetWidth(w int) Sidebar {
	s.width = w
	return s
}

// Width returns the outer width.
func (s Sidebar) Width() int { return s.width }

// Up moves the cursor up.
func (s Sidebar) Up() Sidebar {
	if s.cursor > 0 {
		s.cursor--
	}
	return s
}

// Down moves the cursor down.
func (s Sidebar) Down() Sidebar {
	if s.cursor < len(s.items)-1 {
		s.cursor++
	}
	return s
}

// Selected returns the conversation under the cursor, or nil.
func (s Sidebar) Selected() *model.Conversation {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return nil
	}
	return s.items[s.cursor]
}

// View renders the sidebar height lines tall.
func (s Sidebar) View(height int) string {
	inner := s.width - 3
	if inner < 4 {
		inner = 4
	}

	var b strings.Builder
	b.WriteString(s.theme.Title.Render("Conversations"))
	b.WriteString("\n")
	switch {
	case s.loading && len(s.items) == 0:
		b.WriteString(s.theme.Muted.Render("Loading..."))
		b.WriteString("\n")
	case s.stale:
		b.WriteString(s.theme.Stale.Render(styles.StatusIndicators.Warning + " offline copy"))
		b.WriteString("\n")
		if !s.syncedAt.IsZero() {
			b.WriteString(s.theme.Muted.Render(util.TruncateWidth("cached "+humanize.Time(s.syncedAt), inner)))
			b.WriteString("\n")
		}
	default:
		b.WriteString("\n")
	}

	if len(s.items) == 0 && !s.loading {
		b.WriteString(s.theme.Muted.Render("No conversations yet"))
	}

	// Keep the cursor visible when the list is taller than the pane.
	visible := height - 4
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	end := start + visible
	if end > len(s.items) {
		end = len(s.items)
	}

	for i := start; i < end; i++ {
		c := s.items[i]
		marker := "  "
		if c.Mode == model.ModeAgentic {
			marker = "* "
		}
		line := util.TruncateWidth(marker+util.SingleLine(c.GetTitle()), inner)
		style := s.theme.SidebarItem
		if c.ID == s.activeID {
			style = s.theme.SidebarActive
		}
		if s.focused && i == s.cursor {
			style = style.Inherit(s.theme.SidebarCursor)
		}
		b.WriteString(style.Render(line))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	frame := s.theme.Sidebar
	if s.focused {
		frame = s.theme.SidebarFocused
	}
	return frame.Width(s.width - 1).Height(height).Render(b.String())
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
