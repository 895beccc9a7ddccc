// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the LegalAI TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - assistant replies, selections, the agentic mode badge
  - Cyan - brand color, user messages, chat mode badge
  - Emerald - success toasts
  - Amber - warnings, stale sidebar marker
  - Rose - errors and the local fallback reply

# Theme (theme.go)

Theme bundles the composed lipgloss styles used by the pages and
components. Call DisableColor once at startup for --no-color.
*/
package styles
