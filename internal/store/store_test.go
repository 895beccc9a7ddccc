// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/reveal"
)

// fakeBackend is an in-memory ConversationAPI and HistoryAPI.
type fakeBackend struct {
	mu sync.Mutex

	convs map[string]*model.Conversation
	order []string

	getErr  error
	sendErr error
	listErr error

	// getGate, when set, blocks GetConversation until it receives.
	getGate chan struct{}
	// getStarted is signalled when GetConversation is entered.
	getStarted chan struct{}

	// sendGate, when set, blocks SendMessage until closed.
	sendGate chan struct{}
	// sendStarted is signalled when SendMessage is entered.
	sendStarted chan struct{}

	sends []api.SendMessageRequest
	reply string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{convs: map[string]*model.Conversation{}, reply: "Here is the answer you asked for."}
}

func (f *fakeBackend) add(conv *model.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[conv.ID] = conv
	f.order = append(f.order, conv.ID)
}

func (f *fakeBackend) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	if f.getStarted != nil {
		f.getStarted <- struct{}{}
	}
	if f.getGate != nil {
		select {
		case <-f.getGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	conv, ok := f.convs[id]
	if !ok {
		return nil, &api.HTTPError{Status: 404, Message: "Conversation not found"}
	}
	return conv.Clone(), nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, id string, req api.SendMessageRequest) (*api.SendResult, error) {
	if f.sendStarted != nil {
		f.sendStarted <- struct{}{}
	}
	if f.sendGate != nil {
		select {
		case <-f.sendGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	conv := f.convs[id]
	n := len(conv.Messages)
	user := &model.Message{ID: id + "-u" + strconv.Itoa(n), Role: model.RoleUser, Content: req.Content}
	bot := &model.Message{ID: id + "-a" + strconv.Itoa(n+1), Role: model.RoleAssistant, Content: f.reply}
	conv.Messages = append(conv.Messages, user, bot)
	conv.SessionID = "sess-1"
	return &api.SendResult{
		Message:      bot.Clone(),
		Conversation: model.ConversationUpdate{ID: id, SessionID: "sess-1"},
	}, nil
}

func (f *fakeBackend) ListConversations(context.Context) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Conversation, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.convs[id].Clone())
	}
	return out, nil
}

func (f *fakeBackend) CreateConversation(_ context.Context, req api.CreateConversationRequest) (*model.Conversation, error) {
	f.mu.Lock()
	id := "new-" + strconv.Itoa(len(f.order))
	f.mu.Unlock()
	conv := &model.Conversation{ID: id, Title: req.Title, Mode: req.Mode}
	f.add(conv)
	return conv.Clone(), nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.convs, id)
	kept := f.order[:0]
	for _, o := range f.order {
		if o != id {
			kept = append(kept, o)
		}
	}
	f.order = kept
	return nil
}

func (f *fakeBackend) DeleteAllConversations(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.order)
	f.convs = map[string]*model.Conversation{}
	f.order = nil
	return n, nil
}

type noteLog struct {
	mu    sync.Mutex
	notes []string
}

func (n *noteLog) Notify(_ Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, msg)
}

func (n *noteLog) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notes)
}

func newTestConversation(t *testing.T, backend *fakeBackend, notes Notifier, navigator Navigator) *Conversation {
	t.Helper()
	c := NewConversation(ConversationOptions{
		Client:    backend,
		Animator:  reveal.New(3, time.Millisecond),
		Notifier:  notes,
		Navigator: navigator,
	})
	t.Cleanup(c.Close)
	return c
}

func seeded() *fakeBackend {
	b := newFakeBackend()
	b.add(&model.Conversation{ID: "c1", Title: "Lease", Mode: model.ModeNormal})
	return b
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_Ready(t *testing.T) {
	b := seeded()
	c := newTestConversation(t, b, nil, nil)

	require.NoError(t, c.Load(context.Background(), "c1"))
	snap := c.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, "Lease", snap.Conversation.Title)
}

func TestLoad_FailureNavigatesAwayAndIsFinal(t *testing.T) {
	b := seeded()
	notes := &noteLog{}
	n := nav.NewNavigator()
	n.Navigate("/chat/missing")
	c := newTestConversation(t, b, notes, n)

	err := c.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, StatusError, c.Snapshot().Status)
	assert.Equal(t, nav.PageWelcome, n.Current().Page)
	assert.Equal(t, 1, notes.count())

	assert.ErrorIs(t, c.Load(context.Background(), "c1"), ErrPageClosed)
	assert.ErrorIs(t, c.Send(context.Background(), "hi", nil), ErrPageClosed)
}

func TestLoad_FailureAfterCloseLeavesRouteAlone(t *testing.T) {
	b := seeded()
	b.getGate = make(chan struct{})
	b.getStarted = make(chan struct{}, 1)
	notes := &noteLog{}
	n := nav.NewNavigator()
	n.Navigate("/chat/old")
	c := newTestConversation(t, b, notes, n)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), "old") }()
	<-b.getStarted

	c.Close()
	n.Navigate("/chat/other")
	close(b.getGate)

	assert.ErrorIs(t, <-done, ErrPageClosed)
	assert.Equal(t, "/chat/other", n.Current().Path)
	assert.Equal(t, 0, notes.count())
	assert.NotEqual(t, StatusError, c.Snapshot().Status)
}

func TestLoad_DropsUnknownRoles(t *testing.T) {
	b := newFakeBackend()
	b.add(&model.Conversation{ID: "c1", Messages: []*model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "q"},
		{ID: "m2", Role: "tool", Content: "{}"},
		{ID: "m3", Role: model.RoleAssistant, Content: "a"},
	}})
	c := newTestConversation(t, b, nil, nil)

	require.NoError(t, c.Load(context.Background(), "c1"))
	msgs := c.Snapshot().Conversation.Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m3", msgs[1].ID)
}

func TestLastMessage_EmptyConversation(t *testing.T) {
	b := seeded()
	c := newTestConversation(t, b, nil, nil)
	assert.Equal(t, "", c.LastMessage())

	require.NoError(t, c.Load(context.Background(), "c1"))
	assert.Equal(t, "", c.LastMessage())
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_OptimisticThenReplaced(t *testing.T) {
	b := seeded()
	b.sendGate = make(chan struct{})
	b.sendStarted = make(chan struct{}, 1)
	c := newTestConversation(t, b, nil, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "What is a lease?", nil) }()

	<-b.sendStarted
	snap := c.Snapshot()
	require.Len(t, snap.Conversation.Messages, 1)
	pending := snap.Conversation.Messages[0]
	assert.True(t, pending.IsPending())
	assert.True(t, strings.HasPrefix(pending.ID, model.PendingIDPrefix))
	assert.Equal(t, "What is a lease?", pending.Content)
	assert.True(t, snap.Sending)

	close(b.sendGate)
	require.NoError(t, <-done)

	snap = c.Snapshot()
	assert.False(t, snap.Sending)
	require.Len(t, snap.Conversation.Messages, 2)
	for _, m := range snap.Conversation.Messages {
		assert.True(t, m.IsConfirmed())
		assert.False(t, strings.HasPrefix(m.ID, model.PendingIDPrefix))
	}
	assert.Equal(t, "sess-1", snap.Conversation.SessionID)
	assert.Equal(t, b.reply, c.LastMessage())
}

func TestSend_RevealsLastReply(t *testing.T) {
	b := seeded()
	c := newTestConversation(t, b, nil, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	var mu sync.Mutex
	var texts []string
	c.OnChange(func(s Snapshot) {
		if s.Streaming {
			mu.Lock()
			texts = append(texts, s.StreamingText)
			mu.Unlock()
		}
	})

	require.NoError(t, c.Send(context.Background(), "hello", nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.WaitReveal(ctx))

	snap := c.Snapshot()
	assert.False(t, snap.Streaming)
	last := snap.Conversation.LastAssistantMessage()
	require.NotNil(t, last)
	assert.Equal(t, b.reply, snap.DisplayContent(last), "stored content is never altered")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, texts)
	for _, txt := range texts {
		assert.True(t, strings.HasPrefix(b.reply, txt))
	}
}

func TestSend_FailureAppendsOneFallback(t *testing.T) {
	b := seeded()
	b.sendErr = &api.HTTPError{Status: 500, Message: "db down"}
	notes := &noteLog{}
	c := newTestConversation(t, b, notes, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	err := c.Send(context.Background(), "hello", nil)
	require.Error(t, err)

	snap := c.Snapshot()
	assert.False(t, snap.Sending)
	require.Len(t, snap.Conversation.Messages, 2)
	assert.True(t, snap.Conversation.Messages[0].IsPending(), "optimistic message is kept")
	fallback := snap.Conversation.Messages[1]
	assert.True(t, fallback.IsLocal())
	assert.Equal(t, model.RoleAssistant, fallback.Role)
	assert.Equal(t, FallbackReply, fallback.Content)
	assert.Equal(t, 1, notes.count())
}

func TestSend_RefetchFailureCountsAsFailure(t *testing.T) {
	b := seeded()
	c := newTestConversation(t, b, nil, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	b.mu.Lock()
	b.getErr = errors.New("connection reset")
	b.mu.Unlock()

	require.Error(t, c.Send(context.Background(), "hello", nil))
	snap := c.Snapshot()
	assert.False(t, snap.Sending)
	assert.Equal(t, FallbackReply, snap.Conversation.LastMessage().Content)
}

func TestSend_PageClosedDuringRefetch(t *testing.T) {
	b := seeded()
	notes := &noteLog{}
	c := newTestConversation(t, b, notes, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	b.getGate = make(chan struct{})
	b.getStarted = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello", nil) }()
	<-b.getStarted

	c.Close()
	close(b.getGate)
	require.NoError(t, <-done, "the message reached the backend")
	assert.Len(t, b.sends, 1)
	assert.False(t, c.Snapshot().Sending)
	assert.Equal(t, 0, notes.count())
}

func TestSend_RefetchFailsAfterClose(t *testing.T) {
	b := seeded()
	notes := &noteLog{}
	c := newTestConversation(t, b, notes, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	b.getGate = make(chan struct{})
	b.getStarted = make(chan struct{}, 1)
	b.getErr = errors.New("connection reset")
	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello", nil) }()
	<-b.getStarted

	c.Close()
	close(b.getGate)
	require.NoError(t, <-done)
	assert.Equal(t, 0, notes.count())
	for _, m := range c.Snapshot().Conversation.Messages {
		assert.False(t, m.IsLocal(), "no fallback on a closed page")
	}
}

func TestSend_RejectsOverlap(t *testing.T) {
	b := seeded()
	b.sendGate = make(chan struct{})
	b.sendStarted = make(chan struct{}, 1)
	c := newTestConversation(t, b, nil, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first", nil) }()
	<-b.sendStarted

	assert.ErrorIs(t, c.Send(context.Background(), "second", nil), ErrSendInFlight)

	close(b.sendGate)
	require.NoError(t, <-done)
	assert.Len(t, b.sends, 1)
}

func TestSend_Validation(t *testing.T) {
	b := seeded()
	c := newTestConversation(t, b, nil, nil)
	assert.ErrorIs(t, c.Send(context.Background(), "hi", nil), ErrNotReady)

	require.NoError(t, c.Load(context.Background(), "c1"))
	assert.ErrorIs(t, c.Send(context.Background(), "   ", nil), ErrEmptyMessage)
}

func TestSend_AttachmentAndMode(t *testing.T) {
	b := seeded()
	c := NewConversation(ConversationOptions{
		Client:   b,
		Animator: reveal.New(3, time.Millisecond),
		Mode:     func() model.Mode { return model.ModeAgentic },
	})
	t.Cleanup(c.Close)
	require.NoError(t, c.Load(context.Background(), "c1"))

	att := &api.Attachment{Name: "nda.pdf", Data: []byte("x")}
	require.NoError(t, c.Send(context.Background(), "review", att))
	require.Len(t, b.sends, 1)
	assert.Equal(t, model.ModeAgentic, b.sends[0].Mode)
	assert.Same(t, att, b.sends[0].Attachment)
}

func TestRegenerate_AppendsNewExchange(t *testing.T) {
	b := seeded()
	c := newTestConversation(t, b, nil, nil)
	require.NoError(t, c.Load(context.Background(), "c1"))
	assert.ErrorIs(t, c.Regenerate(context.Background()), ErrNothingToRegenerate)

	require.NoError(t, c.Send(context.Background(), "draft a clause", nil))
	require.NoError(t, c.Regenerate(context.Background()))

	snap := c.Snapshot()
	assert.Len(t, snap.Conversation.Messages, 4)
	require.Len(t, b.sends, 2)
	assert.Equal(t, "draft a clause", b.sends[1].Content)
}

// =============================================================================
// RECONCILE
// =============================================================================

func TestReconcile_ConfirmedReplacesLocal(t *testing.T) {
	local := []*model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "old"},
		model.NewPendingUserMessage("pending", nil),
		model.NewLocalAssistantMessage(FallbackReply),
	}
	confirmed := []*model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "old"},
		{ID: "m2", Role: model.RoleUser, Content: "pending"},
		{ID: "m3", Role: model.RoleAssistant, Content: "reply"},
	}

	got, dropped := Reconcile(local, confirmed)
	assert.Equal(t, 2, dropped)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.NotSame(t, confirmed[0], got[0])

	got, _ = Reconcile(local, nil)
	assert.Empty(t, got)
}

func TestReconcile_DropsUnknownRoles(t *testing.T) {
	got, dropped := Reconcile(nil, []*model.Message{
		{ID: "m1", Role: "tool", Content: "{}"},
		{ID: "m2", Role: model.RoleSystem, Content: "You are a legal assistant."},
		{ID: "m3", Role: "", Content: "?"},
	})
	assert.Equal(t, 2, dropped)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].ID)
}

// =============================================================================
// HISTORY
// =============================================================================

type memCache struct {
	items    []*model.Conversation
	syncedAt time.Time
}

func (m *memCache) PutConversations(_ context.Context, convs []*model.Conversation) error {
	m.items = convs
	m.syncedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return nil
}

func (m *memCache) ConversationsSyncedAt(context.Context) (time.Time, bool) {
	return m.syncedAt, !m.syncedAt.IsZero()
}

func (m *memCache) Conversations(context.Context) ([]*model.Conversation, error) {
	return m.items, nil
}

func (m *memCache) DeleteConversation(_ context.Context, id string) error {
	kept := m.items[:0]
	for _, c := range m.items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	m.items = kept
	return nil
}

func TestHistory_RefreshAndStaleFallback(t *testing.T) {
	b := seeded()
	b.add(&model.Conversation{ID: "c2", Title: "NDA"})
	cache := &memCache{}
	h := NewHistory(b, cache)

	require.NoError(t, h.Refresh(context.Background()))
	snap := h.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.False(t, snap.Stale)
	assert.True(t, snap.SyncedAt.IsZero())
	assert.Len(t, cache.items, 2)

	b.listErr = &api.HTTPError{Message: "refused"}
	require.Error(t, h.Refresh(context.Background()))
	snap = h.Snapshot()
	assert.True(t, snap.Stale)
	assert.Len(t, snap.Items, 2)
	assert.Error(t, snap.Err)
	assert.Equal(t, cache.syncedAt, snap.SyncedAt)

	b.listErr = nil
	require.NoError(t, h.Refresh(context.Background()))
	assert.True(t, h.Snapshot().SyncedAt.IsZero(), "a live list clears the cache time")
}

func TestHistory_CreateDelete(t *testing.T) {
	b := seeded()
	h := NewHistory(b, nil)
	require.NoError(t, h.Refresh(context.Background()))

	conv, err := h.Create(context.Background(), api.CreateConversationRequest{Title: "Will"})
	require.NoError(t, err)
	assert.Equal(t, model.ModeNormal, conv.Mode)

	snap := h.Snapshot()
	assert.Equal(t, conv.ID, snap.Items[0].ID)
	assert.Equal(t, conv.ID, snap.ActiveID)

	wasActive, err := h.Delete(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.True(t, wasActive)
	assert.Empty(t, h.Snapshot().ActiveID)

	n, err := h.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, h.Snapshot().Items)
}

func TestHistory_Touch(t *testing.T) {
	b := seeded()
	b.add(&model.Conversation{ID: "c2"})
	h := NewHistory(b, nil)
	require.NoError(t, h.Refresh(context.Background()))

	h.Touch(&model.Conversation{ID: "c2", Title: "Renamed"})
	snap := h.Snapshot()
	assert.Equal(t, "c2", snap.Items[0].ID)
	assert.Equal(t, "Renamed", snap.Items[0].Title)
	assert.Len(t, snap.Items, 2)
}
