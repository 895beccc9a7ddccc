// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AnuGuin/LegalAI/internal/nav"
)

// page is one screen hosted by the root model. Pages are pointers and
// mutate in place; the root model owns exactly one at a time.
type page interface {
	// Route is the route the page was opened for.
	Route() nav.Route
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	Resize(width, height int)
	View() string
	// InputFocused reports whether printable keys belong to the page.
	InputFocused() bool
	// Close releases stores and animations. The page is not reused.
	Close()
}

// newPage builds the page for a route.
func newPage(e *env, r nav.Route) page {
	switch r.Page {
	case nav.PageAuth:
		return newAuthPage(e, r)
	case nav.PageChat:
		if r.Param != "" {
			return newChatPage(e, r)
		}
		return newWelcomePage(e, r)
	case nav.PageShared:
		return newSharedPage(e, r)
	case nav.PageTranslate:
		return newTranslatePage(e, r)
	default:
		return newWelcomePage(e, r)
	}
}

// showsSidebar reports whether the history sidebar is drawn beside a page.
func showsSidebar(r nav.Route) bool {
	switch r.Page {
	case nav.PageAuth, nav.PageShared:
		return false
	default:
		return true
	}
}
