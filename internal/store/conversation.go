// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/reveal"
)

// FallbackReply is the local assistant message shown when a send fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

var (
	// ErrSendInFlight rejects a send while another is outstanding.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrNotReady means the conversation has not finished loading.
	ErrNotReady = errors.New("conversation is not loaded")

	// ErrPageClosed means the store failed to load or was closed before the
	// request reached the backend.
	ErrPageClosed = errors.New("conversation page is closed")

	// ErrEmptyMessage rejects a send with no content and no attachment.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNothingToRegenerate means there is no earlier user message.
	ErrNothingToRegenerate = errors.New("no message to regenerate")
)

// Status is the load state of a conversation page.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ConversationAPI is the subset of the backend client the page uses.
type ConversationAPI interface {
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	SendMessage(ctx context.Context, conversationID string, req api.SendMessageRequest) (*api.SendResult, error)
}

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(path string) nav.Route
}

// Snapshot is a copy of the page state, safe to read without locking.
type Snapshot struct {
	ID           string
	Status       Status
	Conversation *model.Conversation
	Sending      bool
	Streaming    bool
	// StreamingID and StreamingText describe the reply being revealed.
	StreamingID   string
	StreamingText string
	Err           error
}

// DisplayContent returns what should be shown for msg: the partially
// revealed text while it is animating, else its stored content.
func (s Snapshot) DisplayContent(msg *model.Message) string {
	if s.Streaming && msg.ID == s.StreamingID {
		return s.StreamingText
	}
	return msg.Content
}

// ConversationOptions configures a Conversation store.
type ConversationOptions struct {
	Client    ConversationAPI
	Animator  *reveal.Animator
	Notifier  Notifier
	Navigator Navigator
	// Mode returns the mode sent with each message. Nil means the
	// conversation's own mode.
	Mode   func() model.Mode
	Logger *zerolog.Logger
}

// Conversation is the state of one open conversation page.
type Conversation struct {
	mu sync.Mutex

	client   ConversationAPI
	animator *reveal.Animator
	notifier Notifier
	nav      Navigator
	modeFn   func() model.Mode
	log      zerolog.Logger

	id        string
	status    Status
	conv      *model.Conversation
	sending   bool
	streaming bool
	streamID  string
	text      string
	revealGen uint64
	handle    *reveal.Handle
	err       error
	closed    bool

	onChange func(Snapshot)
}

// NewConversation creates a page store.
func NewConversation(opts ConversationOptions) *Conversation {
	c := &Conversation{
		client:   opts.Client,
		animator: opts.Animator,
		notifier: opts.Notifier,
		nav:      opts.Navigator,
		modeFn:   opts.Mode,
		status:   StatusLoading,
	}
	if c.animator == nil {
		c.animator = reveal.New(0, 0)
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if opts.Logger != nil {
		c.log = opts.Logger.With().Str("component", "conversation").Logger()
	} else {
		c.log = log.With().Str("component", "conversation").Logger()
	}
	return c
}

// OnChange registers the change hook. It is called after every state change
// from whichever goroutine made it, and must not block.
func (c *Conversation) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:            c.id,
		Status:        c.status,
		Sending:       c.sending,
		Streaming:     c.streaming,
		StreamingID:   c.streamID,
		StreamingText: c.text,
		Err:           c.err,
	}
	if c.conv != nil {
		s.Conversation = c.conv.Clone()
	}
	return s
}

func (c *Conversation) changed() {
	c.mu.Lock()
	fn := c.onChange
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// =============================================================================
// LOAD
// =============================================================================

// Load fetches the conversation. On failure the page moves to the error
// state and navigates to the welcome route; that state is final.
func (c *Conversation) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed || c.status == StatusError {
		c.mu.Unlock()
		return ErrPageClosed
	}
	c.id = id
	c.status = StatusLoading
	c.mu.Unlock()
	c.changed()

	conv, err := c.client.GetConversation(ctx, id)
	if err != nil {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			c.log.Debug().Err(err).Str("conversation", id).Msg("load failed after close")
			return ErrPageClosed
		}
		c.log.Warn().Err(err).Str("conversation", id).Msg("load failed")
		c.status = StatusError
		c.err = err
		c.mu.Unlock()
		c.changed()

		c.notifier.Notify(LevelError, api.Describe(err))
		if c.nav != nil {
			c.nav.Navigate(nav.PathWelcome)
		}
		return errors.Wrapf(err, "load conversation %s", id)
	}

	msgs, dropped := Reconcile(nil, conv.Messages)
	conv.Messages = msgs
	if dropped > 0 {
		c.log.Warn().Str("conversation", id).Int("dropped", dropped).Msg("ignored messages with unknown roles")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrPageClosed
	}
	c.conv = conv
	c.status = StatusReady
	c.mu.Unlock()
	c.changed()
	return nil
}

// =============================================================================
// SEND
// =============================================================================

// Send posts a user message. The pending copy is visible before the call
// returns; on success the list is replaced by a refetch and the newest
// reply is revealed, on failure one fallback reply is appended. The error
// of a failed round trip is returned after the fallback is in place.
func (c *Conversation) Send(ctx context.Context, content string, attachment *api.Attachment) error {
	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return ErrEmptyMessage
	}

	var attachments []string
	if attachment != nil {
		attachments = []string{attachment.Name}
	}

	c.mu.Lock()
	switch {
	case c.closed || c.status == StatusError:
		c.mu.Unlock()
		return ErrPageClosed
	case c.status != StatusReady:
		c.mu.Unlock()
		return ErrNotReady
	case c.sending:
		c.mu.Unlock()
		return ErrSendInFlight
	}
	pending := model.NewPendingUserMessage(content, attachments)
	c.conv.Messages = append(c.conv.Messages, pending)
	c.sending = true
	c.err = nil
	id := c.id
	mode := c.conv.Mode
	c.mu.Unlock()
	c.changed()

	if c.modeFn != nil {
		mode = c.modeFn()
	}
	if !mode.Valid() {
		mode = model.ModeNormal
	}

	res, err := c.client.SendMessage(ctx, id, api.SendMessageRequest{
		Content:    content,
		Mode:       mode,
		Attachment: attachment,
	})
	if err != nil {
		c.fail(id, err)
		return errors.Wrap(err, "send message")
	}

	c.mu.Lock()
	if c.conv != nil {
		c.conv.ApplyUpdate(res.Conversation)
	}
	c.mu.Unlock()

	// The message is stored server-side from here on. A page closed during
	// the refetch has nothing left to show, so the send still reports nil.
	fresh, err := c.client.GetConversation(ctx, id)
	if err != nil {
		if c.isClosed() {
			c.log.Debug().Err(err).Str("conversation", id).Msg("refetch failed after close")
			return nil
		}
		c.fail(id, err)
		return errors.Wrap(err, "refresh conversation")
	}

	c.mu.Lock()
	if c.closed {
		c.sending = false
		c.mu.Unlock()
		return nil
	}
	msgs, dropped := Reconcile(c.conv.Messages, fresh.Messages)
	fresh.Messages = msgs
	if fresh.SessionID == "" {
		fresh.SessionID = c.conv.SessionID
	}
	if fresh.DocumentID == "" {
		fresh.DocumentID = c.conv.DocumentID
	}
	c.conv = fresh
	c.sending = false
	reply := fresh.LastAssistantMessage()
	c.mu.Unlock()

	c.log.Debug().Str("conversation", id).Int("dropped", dropped).Int("messages", len(msgs)).Msg("reconciled")
	c.changed()

	if reply != nil {
		c.startReveal(reply.ID, reply.Content)
	}
	return nil
}

func (c *Conversation) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fail records a failed send: sending is cleared, the pending message is
// kept and exactly one local fallback reply is appended.
func (c *Conversation) fail(id string, err error) {
	c.log.Warn().Err(err).Str("conversation", id).Msg("send failed")
	c.mu.Lock()
	c.sending = false
	c.err = err
	if c.conv != nil {
		c.conv.Messages = append(c.conv.Messages, model.NewLocalAssistantMessage(FallbackReply))
	}
	c.mu.Unlock()
	c.changed()
	c.notifier.Notify(LevelError, api.Describe(err))
}

// Regenerate sends the most recent user message again. The earlier
// exchange is kept; a new pair is appended.
func (c *Conversation) Regenerate(ctx context.Context) error {
	c.mu.Lock()
	var content string
	if c.conv != nil {
		if m := c.conv.LastUserMessage(); m != nil {
			content = m.Content
		}
	}
	c.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return ErrNothingToRegenerate
	}
	return c.Send(ctx, content, nil)
}

// LastMessage returns the content of the newest message, or "" when there
// are none.
func (c *Conversation) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conv == nil {
		return ""
	}
	if m := c.conv.LastMessage(); m != nil {
		return m.Content
	}
	return ""
}

// =============================================================================
// REVEAL
// =============================================================================

// startReveal animates a reply. Must be called without c.mu held: frame
// callbacks take c.mu while the animator holds the handle lock.
func (c *Conversation) startReveal(messageID, text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.revealGen++
	gen := c.revealGen
	c.streaming = true
	c.streamID = messageID
	c.text = ""
	c.mu.Unlock()
	c.changed()

	h := c.animator.Start(messageID, text, func(f reveal.Frame) {
		c.onFrame(gen, f)
	})

	c.mu.Lock()
	if gen == c.revealGen {
		c.handle = h
	}
	c.mu.Unlock()
}

func (c *Conversation) onFrame(gen uint64, f reveal.Frame) {
	c.mu.Lock()
	if gen != c.revealGen {
		c.mu.Unlock()
		return
	}
	c.text = f.Text
	if f.Done {
		c.streaming = false
		c.streamID = ""
		c.text = ""
	}
	c.mu.Unlock()
	c.changed()
}

// StopReveal ends the running animation and shows the full reply.
func (c *Conversation) StopReveal() {
	c.mu.Lock()
	c.revealGen++
	c.streaming = false
	c.streamID = ""
	c.text = ""
	c.mu.Unlock()
	c.animator.Cancel()
	c.changed()
}

// Revealing reports whether a reply animation is still running.
func (c *Conversation) Revealing() bool {
	return c.animator.Active()
}

// WaitReveal blocks until the current animation finishes or ctx is done.
func (c *Conversation) WaitReveal(ctx context.Context) error {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the page down. Running animations are cancelled and later
// frames are ignored.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	c.revealGen++
	c.streaming = false
	c.mu.Unlock()
	c.animator.Cancel()
}
