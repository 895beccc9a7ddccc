// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model of the LegalAI TUI.
//
// The root model owns the sidebar, the mode selector and the toast stack,
// and hosts one page at a time (welcome, auth, chat, shared, translate)
// chosen from the navigator's current route.
//
// Stores and watchers change state from background goroutines. They never
// call Program.Send; instead they signal a one-slot channel and the root
// model re-reads their snapshots when the signal arrives.
package app
