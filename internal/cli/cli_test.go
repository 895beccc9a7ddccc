// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/config"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/session"
	"github.com/AnuGuin/LegalAI/internal/store"
)

// =============================================================================
// HELPERS
// =============================================================================

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

// backend is a fake LegalAI server. sent flips once a message is posted so
// the refetch returns the assistant reply.
type backend struct {
	*httptest.Server
	sent       atomic.Bool
	listDown   atomic.Bool
	sharedAuth atomic.Value
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/conversations" && b.listDown.Load():
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/conversations":
			writeEnvelope(w, []map[string]any{
				{"id": "c1", "title": "Tenancy deposit", "mode": "NORMAL", "updatedAt": "2025-03-01T10:00:00Z"},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/conversations/c1":
			msgs := []map[string]any{
				{"id": "m1", "role": "user", "content": "Can my landlord keep the deposit?"},
				{"id": "m1t", "role": "tool", "content": "statute-lookup-raw"},
				{"id": "m2", "role": "assistant", "content": "Only for documented damage."},
			}
			if b.sent.Load() {
				msgs = append(msgs,
					map[string]any{"id": "m3", "role": "user", "content": "What counts as damage?"},
					map[string]any{"id": "m4", "role": "assistant", "content": "Anything beyond fair wear and tear."},
				)
			}
			writeEnvelope(w, map[string]any{"id": "c1", "title": "Tenancy deposit", "mode": "NORMAL", "messages": msgs})
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat/conversations/c1/messages":
			b.sent.Store(true)
			writeEnvelope(w, map[string]any{
				"message":      map[string]any{"id": "m4", "role": "assistant", "content": "Anything beyond fair wear and tear."},
				"conversation": map[string]any{"id": "c1"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat/conversations":
			writeEnvelope(w, map[string]any{"id": "c2", "title": "Lease review", "mode": "AGENTIC"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/chat/conversations":
			writeEnvelope(w, map[string]any{"deletedCount": 3})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/chat/conversations/c"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/shared/tok123":
			b.sharedAuth.Store(r.Header.Get("Authorization"))
			writeEnvelope(w, map[string]any{
				"ownerName": "Ada",
				"conversation": map[string]any{
					"id": "c1", "title": "Tenancy deposit", "mode": "NORMAL",
					"messages": []map[string]any{{"id": "m1", "role": "user", "content": "Hello"}},
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/translation/translate":
			writeEnvelope(w, map[string]any{
				"id": "t1", "sourceText": "Le bail est résilié", "translatedText": "The lease is terminated",
				"sourceLang": "fr", "targetLang": "en",
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/translation/detect-language":
			writeEnvelope(w, map[string]any{"language": "fr"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.Close)
	return b
}

type result struct {
	code   int
	stdout string
	stderr string
}

// decode parses stdout as a JSONResponse with data decoded into v.
func (r result) decode(t *testing.T, v any) JSONResponse {
	t.Helper()
	var raw struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &raw), r.stdout)
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return raw.JSONResponse
}

// harness runs commands against one backend and one data directory.
type harness struct {
	t   *testing.T
	srv *backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, srv: newBackend(t)}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	rt := &runtime{out: &out, errOut: &errOut, log: zerolog.Nop()}
	full := append([]string{"--api-url", h.srv.URL, "--no-color"}, args...)
	code := execute(context.Background(), rt, full)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) login() {
	h.t.Helper()
	res := h.run("login", "--token", "tok", "--name", "Ada", "--email", "ada@example.com")
	require.Equal(h.t, ExitSuccess, res.code, res.stderr)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("mode", "x", "bad", ""), ExitUsageError},
		{"config", errors.Wrap(config.ValidateErrors{{Field: "api.base_url", Message: "empty"}}, "load config"), ExitConfigError},
		{"unauthenticated", errors.Wrap(session.ErrUnauthenticated, "whoami"), ExitAuthError},
		{"network", &api.HTTPError{Message: "connection refused"}, ExitNetworkError},
		{"unauthorized", NewCommandError("send", "send", &api.HTTPError{Status: 401, Message: "expired"}), ExitAuthError},
		{"not found", NewCommandError("conversations", "show", &api.HTTPError{Status: 404}), ExitNotFoundError},
		{"timeout", errors.New("context deadline exceeded"), ExitTimeoutError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("mode", "fast", "must be chat or agentic", "--mode agentic")
	assert.Equal(t, "invalid mode: must be chat or agentic (got: fast)\nExample: --mode agentic", err.Error())
}

func TestCommandErrorUsesServerWording(t *testing.T) {
	err := NewCommandError("conversations", "show", &api.HTTPError{Status: 404, Message: "Conversation not found"})
	assert.Contains(t, humanError(err), "Conversation not found")
	assert.Nil(t, NewCommandError("x", "y", nil))
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

func TestJSONResponse(t *testing.T) {
	ok := NewJSONResponse("whoami", WhoamiData{Authenticated: true, Name: "Ada"})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.Contains(t, ok.String(), `"name": "Ada"`)

	bad := NewJSONErrorResponse("whoami", NewValidationError("user", "", "missing", ""))
	assert.False(t, bad.Success)
	require.NotNil(t, bad.Error)
	assert.Contains(t, *bad.Error, "invalid user")
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestWhoami_SignedOut(t *testing.T) {
	h := newHarness(t)
	res := h.run("whoami")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.stderr, "legalai login")
}

func TestWhoami_SignedOutJSON(t *testing.T) {
	h := newHarness(t)
	res := h.run("--json", "whoami")
	require.Equal(t, ExitAuthError, res.code)

	var details map[string]any
	resp := res.decode(t, &details)
	assert.False(t, resp.Success)
	assert.EqualValues(t, ExitAuthError, details["exit_code"])
}

func TestLoginThenWhoami(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("--json", "whoami")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var d WhoamiData
	resp := res.decode(t, &d)
	assert.True(t, resp.Success)
	assert.True(t, d.Authenticated)
	assert.Equal(t, "Ada", d.Name)
	assert.Equal(t, "ada@example.com", d.Email)
	assert.Equal(t, h.srv.URL, d.APIURL)
	assert.Equal(t, string(model.UIModeChat), d.Mode)
}

func TestWhoami_ReportsExpiredToken(t *testing.T) {
	h := newHarness(t)
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, h.run("login", "--token", tok, "--name", "Ada").code)

	var d WhoamiData
	h.run("--json", "whoami").decode(t, &d)
	require.NotNil(t, d.TokenExpiresAt)
	assert.True(t, exp.Equal(*d.TokenExpiresAt))

	human := h.run("whoami")
	assert.Contains(t, human.stdout, "expired")
}

func TestLogin_RequiresIdentity(t *testing.T) {
	h := newHarness(t)
	res := h.run("login", "--token", "tok")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestLogin_UserJSON(t *testing.T) {
	u, err := parseLoginUser(`{"id":"u1","name":"Ada"}`, "", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = parseLoginUser("{not json", "", "")
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()
	require.Equal(t, ExitSuccess, h.run("logout").code)
	assert.Equal(t, ExitAuthError, h.run("whoami").code)
}

func TestModePersists(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("mode", "agentic")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "agentic")

	var d WhoamiData
	h.run("--json", "whoami").decode(t, &d)
	assert.Equal(t, string(model.UIModeAgentic), d.Mode)

	assert.Equal(t, ExitUsageError, h.run("mode", "turbo").code)
}

func TestConversationsList(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("--json", "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var d struct {
		Conversations []model.Conversation `json:"conversations"`
		Stale         bool                 `json:"stale"`
	}
	res.decode(t, &d)
	require.Len(t, d.Conversations, 1)
	assert.Equal(t, "c1", d.Conversations[0].ID)
	assert.False(t, d.Stale)

	human := h.run("c", "list")
	assert.Contains(t, human.stdout, "Tenancy deposit")
}

func TestConversationsList_OfflineCopy(t *testing.T) {
	h := newHarness(t)
	h.login()
	require.Equal(t, ExitSuccess, h.run("conversations", "list").code)

	h.srv.listDown.Store(true)
	res := h.run("--json", "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var d struct {
		Conversations []model.Conversation `json:"conversations"`
		Stale         bool                 `json:"stale"`
		SyncedAt      time.Time            `json:"synced_at"`
	}
	res.decode(t, &d)
	assert.True(t, d.Stale)
	require.Len(t, d.Conversations, 1)
	assert.False(t, d.SyncedAt.IsZero())
	assert.Contains(t, res.stderr, "offline copy from")
}

func TestConversationsShow(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("conversations", "show", "c1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Tenancy deposit")
	assert.Contains(t, res.stdout, "Only for documented damage.")
	assert.NotContains(t, res.stdout, "statute-lookup-raw", "unknown roles are not shown")

	missing := h.run("conversations", "show", "nope")
	assert.Equal(t, ExitNotFoundError, missing.code)
}

func TestConversationsCreate_UsesSessionMode(t *testing.T) {
	h := newHarness(t)
	h.login()
	res := h.run("--json", "conversations", "create", "--title", "Lease review", "--mode", "agentic")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var conv model.Conversation
	res.decode(t, &conv)
	assert.Equal(t, "c2", conv.ID)
	assert.Equal(t, model.ModeAgentic, conv.Mode)
}

func TestDelete_Several(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("--json", "conversations", "delete", "c3", "c1", "c2")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var d struct {
		Deleted []string `json:"deleted"`
	}
	res.decode(t, &d)
	assert.Equal(t, []string{"c1", "c2", "c3"}, d.Deleted)

	partial := h.run("conversations", "delete", "c1", "x9")
	assert.Equal(t, ExitNotFoundError, partial.code)
	assert.Contains(t, partial.stderr, "Deleted c1")
}

func TestDeleteAll(t *testing.T) {
	h := newHarness(t)
	h.login()

	assert.Equal(t, ExitUsageError, h.run("conversations", "delete-all").code)

	res := h.run("--json", "conversations", "delete-all", "--yes")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var d DeleteAllData
	res.decode(t, &d)
	assert.Equal(t, 3, d.DeletedCount)
}

func TestSend_PrintsReply(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("--json", "send", "c1", "What counts as damage?")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var d SendData
	res.decode(t, &d)
	assert.Equal(t, "c1", d.ConversationID)
	assert.Equal(t, "Anything beyond fair wear and tear.", d.Reply)
}

func TestSend_RequiresMessage(t *testing.T) {
	h := newHarness(t)
	h.login()
	assert.Equal(t, ExitUsageError, h.run("send", "c1", "   ").code)
}

func TestSend_UnknownConversation(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("send", "c9", "Hello")
	assert.Equal(t, ExitNotFoundError, res.code)
	assert.False(t, h.srv.sent.Load())
}

func TestShared_IsAnonymous(t *testing.T) {
	h := newHarness(t)

	res := h.run("shared", h.srv.URL+"/shared/tok123")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Shared by Ada")
	assert.Equal(t, "", h.srv.sharedAuth.Load())
}

func TestTranslate(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("--json", "translate", "Le bail est résilié", "--to", "en")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var tr model.Translation
	res.decode(t, &tr)
	assert.Equal(t, "The lease is terminated", tr.TranslatedText)

	human := h.run("translate", "Le bail est résilié")
	assert.Contains(t, human.stdout, "French → English")
}

func TestDetect_FillsLanguageName(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("detect", "Le bail est résilié")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "French (fr)")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	res := h.run("frobnicate")
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.stderr, "unknown command")
}

func TestTUIRequiresTerminal(t *testing.T) {
	h := newHarness(t)
	h.login()
	assert.Equal(t, ExitUsageError, h.run().code)
}

// =============================================================================
// HELPERS UNDER TEST
// =============================================================================

func TestColorsFromEnv(t *testing.T) {
	env := func(kv map[string]string) func(string) string {
		return func(k string) string { return kv[k] }
	}
	assert.False(t, colorsFromEnv(env(map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}), true))
	assert.True(t, colorsFromEnv(env(map[string]string{"FORCE_COLOR": "1"}), false))
	assert.True(t, colorsFromEnv(env(nil), true))
	assert.False(t, colorsFromEnv(env(nil), false))
}

func TestResolveMode(t *testing.T) {
	rt := &runtime{session: session.NewProvider(session.NewMemoryStore(session.State{}))}
	require.NoError(t, rt.session.Init())

	m, err := resolveMode(rt, "")
	require.NoError(t, err)
	assert.Equal(t, model.ModeNormal, m)

	m, err = resolveMode(rt, "Agentic")
	require.NoError(t, err)
	assert.Equal(t, model.ModeAgentic, m)

	_, err = resolveMode(rt, "fast")
	assert.Error(t, err)
}

func TestRevealPrinter_PrintsDeltas(t *testing.T) {
	var buf bytes.Buffer
	p := newRevealPrinter(&buf)

	p.onChange(store.Snapshot{Streaming: true, StreamingID: "m4", StreamingText: "Anything "})
	p.onChange(store.Snapshot{Streaming: true, StreamingID: "m4", StreamingText: "Anything beyond "})
	p.onChange(store.Snapshot{Streaming: false})
	assert.Equal(t, "Anything beyond ", buf.String())

	conv := &model.Conversation{Messages: []*model.Message{
		{ID: "m4", Role: model.RoleAssistant, Content: "Anything beyond fair wear and tear."},
	}}
	p.finish(store.Snapshot{Conversation: conv})
	assert.Equal(t, "Anything beyond fair wear and tear.\n", buf.String())
}

func TestRevealPrinter_FinishPrintsFallback(t *testing.T) {
	var buf bytes.Buffer
	p := newRevealPrinter(&buf)
	conv := &model.Conversation{Messages: []*model.Message{
		model.NewPendingUserMessage("Hello", nil),
		model.NewLocalAssistantMessage(store.FallbackReply),
	}}
	p.finish(store.Snapshot{Conversation: conv})
	assert.Contains(t, buf.String(), store.FallbackReply)
}

func TestRevealPrinter_FinishCompletesStartedReply(t *testing.T) {
	var buf bytes.Buffer
	p := newRevealPrinter(&buf)
	p.onChange(store.Snapshot{Streaming: true, StreamingID: "m2", StreamingText: "Only for "})

	conv := &model.Conversation{Messages: []*model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "Can my landlord keep the deposit?"},
		{ID: "m2", Role: model.RoleAssistant, Content: "Only for documented damage."},
		{ID: "m3", Role: model.RoleSystem, Content: "Conversation archived."},
	}}
	p.finish(store.Snapshot{Conversation: conv})
	assert.Equal(t, "Only for documented damage.\n", buf.String())
}
