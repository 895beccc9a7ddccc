// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI pieces for the LegalAI TUI.

  - Sidebar (sidebar.go) - conversation history with active highlight and
    an offline marker when showing cached data
  - ModeSelector (mode_selector.go) - chat / agentic toggle
  - ToastManager (toast.go) - auto-dismissing notifications

Components are value types in the Bubble Tea style: methods return the
updated copy. ToastManager is the exception; it is shared by pointer and
locked so background work can add toasts.
*/
package components
