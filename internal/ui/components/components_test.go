// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
)

func TestToastManager(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < 6; i++ {
		m.Add(ToastKindStatus, "note")
	}
	assert.Len(t, m.Toasts(), 4, "capped")

	id := m.Add(ToastKindError, "boom")
	assert.Equal(t, "boom", m.Toasts()[0].Message)
	m.Dismiss(id)
	assert.NotEqual(t, "boom", m.Toasts()[0].Message)

	remaining := m.Tick(time.Now().Add(time.Minute))
	assert.Empty(t, remaining)
}

func TestNewToastDurations(t *testing.T) {
	assert.Equal(t, ErrorToastDuration, NewToast(ToastKindError, "x").Duration)
	assert.Equal(t, WarningToastDuration, NewToast(ToastKindWarning, "x").Duration)
	assert.Equal(t, DefaultToastDuration, NewToast(ToastKindSuccess, "x").Duration)
}

func TestWrapText(t *testing.T) {
	got := WrapText("the quick brown fox jumps", 10)
	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), 10)
	}
	assert.Equal(t, "a\n\nb", WrapText("a\n\nb", 10))
}

func TestSidebar(t *testing.T) {
	styles.DisableColor()
	s := NewSidebar(styles.NewTheme(), 24)
	items := []*model.Conversation{
		{ID: "c1", Title: "Lease review"},
		{ID: "c2", Title: "A very long conversation title that will not fit", Mode: model.ModeAgentic},
		{ID: "c3"},
	}
	s = s.SetItems(items, "c2", false, false)
	require.NotNil(t, s.Selected())
	assert.Equal(t, "c2", s.Selected().ID, "cursor follows the active conversation")

	s = s.SetFocused(true).Down().Down()
	assert.Equal(t, "c3", s.Selected().ID)
	s = s.Up().Up().Up()
	assert.Equal(t, "c1", s.Selected().ID)

	view := s.View(10)
	assert.Contains(t, view, "Lease review")
	assert.Contains(t, view, "New Conversation")
	assert.Contains(t, view, "…")

	stale := s.SetItems(items, "", true, false).View(10)
	assert.Contains(t, stale, "offline copy")
	assert.NotContains(t, stale, "cached")
	aged := s.SetItems(items, "", true, false).SetSyncedAt(time.Now().Add(-2 * time.Hour)).View(12)
	assert.Contains(t, aged, "cached 2 hours ago")

	empty := NewSidebar(styles.NewTheme(), 24).SetItems(nil, "", false, false)
	assert.Nil(t, empty.Selected())
	assert.Contains(t, empty.View(6), "No conversations yet")
}

func TestModeSelector(t *testing.T) {
	styles.DisableColor()
	m := NewModeSelector(styles.NewTheme(), model.UIModeChat)
	assert.Equal(t, model.UIModeAgentic, m.Toggle().Mode())
	assert.Contains(t, m.View(), "agentic")
}
