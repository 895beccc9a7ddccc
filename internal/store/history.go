// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
)

// HistoryAPI is the subset of the backend client the sidebar uses.
type HistoryAPI interface {
	ListConversations(ctx context.Context) ([]*model.Conversation, error)
	CreateConversation(ctx context.Context, req api.CreateConversationRequest) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	DeleteAllConversations(ctx context.Context) (int, error)
}

// HistoryCache is an optional local copy of the list.
type HistoryCache interface {
	PutConversations(ctx context.Context, convs []*model.Conversation) error
	Conversations(ctx context.Context) ([]*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ConversationsSyncedAt(ctx context.Context) (time.Time, bool)
}

// HistorySnapshot is a copy of the sidebar state.
type HistorySnapshot struct {
	Items    []*model.Conversation
	ActiveID string
	Loading  bool
	// Stale is set when Items came from the local cache because the
	// backend could not be reached.
	Stale bool
	// SyncedAt is when the cached list was written. Zero unless Stale.
	SyncedAt time.Time
	Err      error
}

// History is the sidebar list of conversations.
type History struct {
	mu       sync.Mutex
	client   HistoryAPI
	cache    HistoryCache
	log      zerolog.Logger
	items    []*model.Conversation
	activeID string
	loading  bool
	stale    bool
	syncedAt time.Time
	err      error
	onChange func(HistorySnapshot)
}

// NewHistory creates the sidebar store. cache may be nil.
func NewHistory(client HistoryAPI, cache HistoryCache) *History {
	return &History{
		client: client,
		cache:  cache,
		log:    log.With().Str("component", "history").Logger(),
	}
}

// OnChange registers the change hook. It must not block.
func (h *History) OnChange(fn func(HistorySnapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Snapshot returns a copy of the current state.
func (h *History) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *History) snapshotLocked() HistorySnapshot {
	items := make([]*model.Conversation, len(h.items))
	for i, c := range h.items {
		items[i] = c.Clone()
	}
	return HistorySnapshot{
		Items:    items,
		ActiveID: h.activeID,
		Loading:  h.loading,
		Stale:    h.stale,
		SyncedAt: h.syncedAt,
		Err:      h.err,
	}
}

func (h *History) changed() {
	h.mu.Lock()
	fn := h.onChange
	snap := h.snapshotLocked()
	h.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetActive marks the conversation highlighted in the sidebar.
func (h *History) SetActive(id string) {
	h.mu.Lock()
	h.activeID = id
	h.mu.Unlock()
	h.changed()
}

// Refresh reloads the list. When the backend fails and a cached copy
// exists, the cached list is shown and marked stale; the error is still
// returned.
func (h *History) Refresh(ctx context.Context) error {
	h.mu.Lock()
	h.loading = true
	h.mu.Unlock()
	h.changed()

	convs, err := h.client.ListConversations(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("list conversations failed")
		var cached []*model.Conversation
		var syncedAt time.Time
		if h.cache != nil {
			var cerr error
			if cached, cerr = h.cache.Conversations(ctx); cerr != nil {
				h.log.Warn().Err(cerr).Msg("read history cache failed")
			}
			syncedAt, _ = h.cache.ConversationsSyncedAt(ctx)
		}
		h.mu.Lock()
		h.loading = false
		h.err = err
		if len(cached) > 0 {
			h.items = cached
			h.stale = true
			h.syncedAt = syncedAt
		}
		h.mu.Unlock()
		h.changed()
		return errors.Wrap(err, "refresh history")
	}

	summaries := make([]*model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c != nil {
			summaries = append(summaries, c.Summary())
		}
	}
	if h.cache != nil {
		if cerr := h.cache.PutConversations(ctx, summaries); cerr != nil {
			h.log.Warn().Err(cerr).Msg("write history cache failed")
		}
	}

	h.mu.Lock()
	h.items = summaries
	h.loading = false
	h.stale = false
	h.syncedAt = time.Time{}
	h.err = nil
	h.mu.Unlock()
	h.changed()
	return nil
}

// Create creates a conversation and puts it at the top of the list.
func (h *History) Create(ctx context.Context, req api.CreateConversationRequest) (*model.Conversation, error) {
	if !req.Mode.Valid() {
		req.Mode = model.ModeNormal
	}
	conv, err := h.client.CreateConversation(ctx, req)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.items = append([]*model.Conversation{conv.Summary()}, h.items...)
	h.activeID = conv.ID
	h.mu.Unlock()
	h.changed()
	return conv, nil
}

// Delete removes one conversation. The active id is cleared when it was
// the deleted one; wasActive tells the caller to navigate away.
func (h *History) Delete(ctx context.Context, id string) (wasActive bool, err error) {
	if err := h.client.DeleteConversation(ctx, id); err != nil {
		return false, err
	}
	if h.cache != nil {
		if cerr := h.cache.DeleteConversation(ctx, id); cerr != nil {
			h.log.Warn().Err(cerr).Msg("cache delete failed")
		}
	}

	h.mu.Lock()
	kept := h.items[:0]
	for _, c := range h.items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	h.items = kept
	wasActive = h.activeID == id
	if wasActive {
		h.activeID = ""
	}
	h.mu.Unlock()
	h.changed()
	return wasActive, nil
}

// DeleteAll removes every conversation and returns the backend's count.
func (h *History) DeleteAll(ctx context.Context) (int, error) {
	n, err := h.client.DeleteAllConversations(ctx)
	if err != nil {
		return 0, err
	}
	if h.cache != nil {
		if cerr := h.cache.PutConversations(ctx, nil); cerr != nil {
			h.log.Warn().Err(cerr).Msg("cache clear failed")
		}
	}
	h.mu.Lock()
	h.items = nil
	h.activeID = ""
	h.mu.Unlock()
	h.changed()
	return n, nil
}

// Touch moves a conversation to the top with fresh metadata, as after a
// send. Unknown ids are inserted.
func (h *History) Touch(conv *model.Conversation) {
	if conv == nil {
		return
	}
	s := conv.Summary()
	h.mu.Lock()
	items := []*model.Conversation{s}
	for _, c := range h.items {
		if c.ID != s.ID {
			items = append(items, c)
		}
	}
	h.items = items
	h.mu.Unlock()
	h.changed()
}
