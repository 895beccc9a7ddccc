// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/cache"
	"github.com/AnuGuin/LegalAI/internal/config"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/session"
	"github.com/AnuGuin/LegalAI/internal/store"
	"github.com/AnuGuin/LegalAI/internal/ui/components"
	"github.com/AnuGuin/LegalAI/internal/ui/render"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
)

// env is shared by the root model and its pages.
type env struct {
	ctx      context.Context
	cfg      *config.Config
	client   *api.Client
	session  *session.Provider
	cache    *cache.Cache
	nav      *nav.Navigator
	history  *store.History
	toasts   *components.ToastManager
	theme    *styles.Theme
	md       *render.Markdown
	log      zerolog.Logger

	changes chan struct{}

	mu      sync.Mutex
	pending map[string]string // conversation id -> first message
}

// signal wakes the root model. Never blocks.
func (e *env) signal() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// waitForChange is the command that turns a signal into a changedMsg.
func (e *env) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-e.changes:
			return changedMsg{}
		case <-e.ctx.Done():
			return nil
		}
	}
}

// Notify implements store.Notifier with toasts.
func (e *env) Notify(level store.Level, message string) {
	kind := components.ToastKindStatus
	switch level {
	case store.LevelError:
		kind = components.ToastKindError
	case store.LevelWarning:
		kind = components.ToastKindWarning
	case store.LevelSuccess:
		kind = components.ToastKindSuccess
	}
	e.toasts.Add(kind, message)
	e.signal()
}

// mode returns the conversation mode selected in the session.
func (e *env) mode() model.Mode {
	return e.session.Mode().ConversationMode()
}

// setFirstMessage parks the opening message of a new conversation until
// its chat page has loaded.
func (e *env) setFirstMessage(id, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[id] = text
}

func (e *env) takeFirstMessage(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	text := e.pending[id]
	delete(e.pending, id)
	return text
}
