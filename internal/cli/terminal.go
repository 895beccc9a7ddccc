// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the LegalAI CLI.
//
// USABILITY: The root command only starts the TUI when both stdin and
// stdout are terminals. Piped output gets no colors and no reveal
// animation, so `legalai send ... | tee answer.txt` stays clean.

package cli

import (
	"os"
	"sync/atomic"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether stdin is a terminal (prompts and the REPL need it).
func IsTTY() bool { return isTerminal(os.Stdin) }

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool { return isTerminal(os.Stdout) }

// Interactive reports whether the full-screen client can run.
func Interactive() bool {
	return IsTTY() && IsStdoutTTY()
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is used when stdout is not a terminal.
	DefaultTerminalWidth = 80
	// MinTerminalWidth keeps separators and wrapped replies readable.
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the stdout width clamped to MinTerminalWidth.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || width <= 0:
		return DefaultTerminalWidth
	case width < MinTerminalWidth:
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// colorOverride is 0 for auto-detect, 1 for forced on and -1 for forced off.
var colorOverride atomic.Int32

// colorsFromEnv applies NO_COLOR (https://no-color.org/) then FORCE_COLOR,
// falling back to tty.
func colorsFromEnv(getenv func(string) string, tty bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	return tty
}

// ColorsEnabled reports whether output should be colored.
func ColorsEnabled() bool {
	switch colorOverride.Load() {
	case 1:
		return true
	case -1:
		return false
	}
	return colorsFromEnv(os.Getenv, IsStdoutTTY())
}

// ForceColorsEnabled overrides detection, as --no-color does.
func ForceColorsEnabled(enabled bool) {
	if enabled {
		colorOverride.Store(1)
		return
	}
	colorOverride.Store(-1)
}

// GetColorProfile returns Ascii when colors are off, else the detected
// terminal profile.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
