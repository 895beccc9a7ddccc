// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown_Disabled(t *testing.T) {
	m := NewMarkdown(false, StyleNoTTY, 80)
	assert.Equal(t, "**bold**", m.Render("**bold**"))
}

func TestMarkdown_RendersPlainStyle(t *testing.T) {
	m := NewMarkdown(true, StyleNoTTY, 60)
	out := m.Render("# Heading\n\nSome **bold** text.")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")

	m.SetWidth(30)
	assert.Contains(t, m.Render("short"), "short")
}

func TestDetectStyle_NoColor(t *testing.T) {
	assert.Equal(t, StyleNoTTY, DetectStyle(false))
}
