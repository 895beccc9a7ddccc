// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/config"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/reveal"
	"github.com/AnuGuin/LegalAI/internal/session"
	"github.com/AnuGuin/LegalAI/internal/store"
	"github.com/AnuGuin/LegalAI/internal/ui/render"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

// newBackend serves one conversation and an empty history.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/conversations":
			writeEnvelope(w, []any{})
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/conversations/c1":
			writeEnvelope(w, map[string]any{
				"id":    "c1",
				"title": "Tenancy deposit",
				"mode":  "NORMAL",
				"messages": []map[string]any{
					{"id": "m1", "role": "user", "content": "Can my landlord keep the deposit?"},
					{"id": "m2", "role": "assistant", "content": "Only for **documented** damage."},
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat/conversations":
			writeEnvelope(w, map[string]any{"id": "c2", "title": "New", "mode": "NORMAL"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signedIn(t *testing.T) (*session.Provider, *session.MemoryStore) {
	t.Helper()
	ms := session.NewMemoryStore(session.State{})
	p := session.NewProvider(ms)
	require.NoError(t, p.Init())
	require.NoError(t, p.Login("tok", model.User{ID: "u1", Name: "Ada"}))
	return p, ms
}

func newTestModel(t *testing.T, sess *session.Provider, start string) Model {
	t.Helper()
	srv := newBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Default()
	cfg.UI.NoColor = true
	cfg.UI.Markdown = false
	cfg.Reveal.IntervalMs = 1

	m := New(ctx, Options{
		Config:    cfg,
		Client:    api.NewClient(srv.URL, api.WithTokenSource(api.TokenFunc(sess.Token))),
		Session:   sess,
		StartPath: start,
		Logger:    zerolog.Nop(),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	mm, ok := next.(Model)
	require.True(t, ok)
	return mm
}

// =============================================================================
// ROUTING
// =============================================================================

func TestNew_SignedOutOpensAuth(t *testing.T) {
	sess := session.NewProvider(session.NewMemoryStore(session.State{}))
	require.NoError(t, sess.Init())

	m := newTestModel(t, sess, nav.ChatPathFor("c1"))

	assert.Equal(t, nav.PageAuth, m.page.Route().Page)
	assert.Contains(t, m.View(), "Sign in to LegalAI")
}

func TestNew_SignedInStartsOnWelcome(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")

	assert.Equal(t, nav.PageWelcome, m.page.Route().Page)
	assert.Contains(t, m.View(), "Welcome back, Ada")
}

func TestSyncRoute_AuthPageRedirectsWhenSignedIn(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.PathAuth)
	assert.Equal(t, nav.PageWelcome, m.page.Route().Page)
}

func TestSyncRoute_UnknownPathFallsBackToWelcome(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "/nowhere")
	assert.Equal(t, nav.PathWelcome, m.page.Route().Path)
}

func TestChangedMsg_SwapsPageOnNavigation(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")

	m.env.nav.Navigate(nav.PathTranslate)
	m = update(t, m, changedMsg{})

	assert.Equal(t, nav.PageTranslate, m.page.Route().Page)
}

func TestSessionLossReturnsToAuth(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")

	require.NoError(t, sess.Logout())
	m = update(t, m, changedMsg{})

	assert.Equal(t, nav.PageAuth, m.page.Route().Page)
}

// =============================================================================
// CHAT PAGE
// =============================================================================

func TestChatPage_LoadsAndRendersTranscript(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))

	cp, ok := m.page.(*chatPage)
	require.True(t, ok)
	require.NoError(t, cp.conv.Load(m.env.ctx, "c1"))

	m = update(t, m, loadedMsg{id: "c1"})
	view := m.View()
	assert.Contains(t, view, "Tenancy deposit")
	assert.Contains(t, view, "Can my landlord keep the deposit?")
	assert.Equal(t, "c1", m.env.history.Snapshot().ActiveID)
}

func TestChatPage_LocalErrorsBecomeToasts(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))
	cp := m.page.(*chatPage)

	cp.Update(sendDoneMsg{err: store.ErrSendInFlight})

	toasts := m.env.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Contains(t, toasts[0].Message, "Wait for the current reply")
}

func TestChatPage_UnknownSlashCommand(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))
	cp := m.page.(*chatPage)

	assert.Nil(t, cp.command("/frobnicate"))
	require.Len(t, m.env.toasts.Toasts(), 1)
	assert.Contains(t, m.env.toasts.Toasts()[0].Message, "Unknown command")
}

func TestChatPage_OpenSharedLink(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))
	cp := m.page.(*chatPage)

	assert.Nil(t, cp.command("/open https://legal.example/shared/tok9"))
	m = update(t, m, changedMsg{})
	assert.Equal(t, nav.PageShared, m.page.Route().Page)
	assert.Equal(t, "tok9", m.page.Route().Param)
}

func TestChatPage_RegenerateNamesQuestion(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))
	cp := m.page.(*chatPage)
	require.NoError(t, cp.conv.Load(m.env.ctx, "c1"))
	m = update(t, m, loadedMsg{id: "c1"})

	require.NotNil(t, cp.regenerate())
	toasts := m.env.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Asking again: Can my landlord keep the deposit?", toasts[len(toasts)-1].Message)
}

func TestChatPage_EscStopsReveal(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))
	cp := m.page.(*chatPage)

	cp.animator.Start("m2", strings.Repeat("clause ", 20000), func(reveal.Frame) {})
	require.True(t, cp.conv.Revealing())

	cp.Update(key("esc"))
	assert.False(t, cp.conv.Revealing())
}

func TestChatPage_ClosingOldPageKeepsNewReveal(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, nav.ChatPathFor("c1"))
	old := m.page.(*chatPage)

	next := newChatPage(m.env, nav.Parse(nav.ChatPathFor("c2")))
	t.Cleanup(next.Close)
	require.NotSame(t, old.animator, next.animator)

	next.animator.Start("m9", strings.Repeat("clause ", 20000), func(reveal.Frame) {})
	old.Close()
	assert.True(t, next.conv.Revealing())
}

// =============================================================================
// WELCOME PAGE
// =============================================================================

func TestWelcomePage_CreatedNavigatesAndParksFirstMessage(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")
	wp := m.page.(*welcomePage)

	wp.Update(createdMsg{conv: &model.Conversation{ID: "c2"}, first: "Is a verbal contract binding?"})
	m = update(t, m, changedMsg{})

	assert.Equal(t, nav.PageChat, m.page.Route().Page)
	assert.Equal(t, "c2", m.page.Route().Param)
	assert.Equal(t, "Is a verbal contract binding?", m.env.takeFirstMessage("c2"))
	assert.Empty(t, m.env.takeFirstMessage("c2"))
}

func TestWelcomePage_StartCreatesConversation(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")
	wp := m.page.(*welcomePage)

	wp.input.SetValue("What is adverse possession?")
	cmd := wp.start()
	require.NotNil(t, cmd)
	assert.Nil(t, wp.start(), "second start while creating is ignored")

	msg, ok := cmd().(createdMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, "c2", msg.conv.ID)
	assert.Equal(t, "What is adverse possession?", msg.first)
}

// =============================================================================
// GLOBAL KEYS
// =============================================================================

func TestSidebarFocusToggle(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")

	m = update(t, m, key("tab"))
	assert.True(t, m.sidebar.Focused())
	assert.Contains(t, m.statusHint(), "delete all")

	m = update(t, m, key("esc"))
	assert.False(t, m.sidebar.Focused())
}

func TestDeleteAllNeedsConfirmation(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")
	m = update(t, m, key("tab"))

	next, cmd := m.Update(key("X"))
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.True(t, m.confirmDeleteAll)

	_, cmd = m.Update(key("X"))
	assert.NotNil(t, cmd)
}

func TestToggleModePersists(t *testing.T) {
	sess, ms := signedIn(t)
	m := newTestModel(t, sess, "")

	m = update(t, m, key("ctrl+o"))

	assert.Equal(t, model.UIModeAgentic, m.modeSel.Mode())
	st, err := ms.Load()
	require.NoError(t, err)
	assert.Equal(t, model.UIModeAgentic, st.AIMode)
	assert.Equal(t, model.ModeAgentic, m.env.mode())
}

func TestLogoutClearsSession(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")

	m = update(t, m, key("ctrl+l"))
	m = update(t, m, changedMsg{})

	assert.False(t, sess.Authenticated())
	assert.Equal(t, nav.PageAuth, m.page.Route().Page)
}

func TestExpiredTokenWarnsOnStart(t *testing.T) {
	sess, _ := signedIn(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, sess.Login(tok, model.User{ID: "u1", Name: "Ada"}))

	m := newTestModel(t, sess, "")
	toasts := m.env.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Contains(t, toasts[0].Message, "expired")
}

func TestEscDismissesToastFirst(t *testing.T) {
	sess, _ := signedIn(t)
	m := newTestModel(t, sess, "")
	m.env.toasts.Add(0, "hello")

	update(t, m, key("esc"))
	assert.Empty(t, m.env.toasts.Toasts())
}

// =============================================================================
// ENV & TRANSCRIPT
// =============================================================================

func TestSignalNeverBlocks(t *testing.T) {
	e := &env{changes: make(chan struct{}, 1), ctx: context.Background()}
	done := make(chan struct{})
	go func() {
		e.signal()
		e.signal()
		e.signal()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("signal blocked")
	}
	_, ok := e.waitForChange()().(changedMsg)
	assert.True(t, ok)
}

func TestRenderTranscript(t *testing.T) {
	styles.DisableColor()
	th := styles.NewTheme()
	md := render.NewMarkdown(false, render.StyleNoTTY, 80)

	pending := model.NewPendingUserMessage("Is this binding?", []string{"lease.pdf"})
	streaming := &model.Message{ID: "a1", Role: model.RoleAssistant, Content: "The full answer"}
	local := model.NewLocalAssistantMessage(store.FallbackReply)

	out := renderTranscript(th, md, []*model.Message{pending, streaming, local}, transcriptOptions{
		width:       80,
		streamingID: "a1",
		content: func(m *model.Message) string {
			if m.ID == "a1" {
				return "The full"
			}
			return m.Content
		},
	})

	assert.Contains(t, out, "sending...")
	assert.Contains(t, out, "lease.pdf")
	assert.Contains(t, out, "The full")
	assert.NotContains(t, out, "The full answer")
	assert.Contains(t, out, store.FallbackReply)
}

func TestRenderTranscript_Empty(t *testing.T) {
	th := styles.NewTheme()
	out := renderTranscript(th, render.NewMarkdown(false, render.StyleNoTTY, 80), nil, transcriptOptions{})
	assert.True(t, strings.Contains(out, "No messages yet"))
}
