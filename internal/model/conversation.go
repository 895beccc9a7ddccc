// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// =============================================================================
// MODES
// =============================================================================

// Mode is the backend conversation mode. It is fixed at creation time.
type Mode string

const (
	ModeNormal  Mode = "NORMAL"
	ModeAgentic Mode = "AGENTIC"
)

// Valid reports whether m is a known conversation mode.
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeAgentic
}

// UIMode is the mode selector value persisted with the session.
type UIMode string

const (
	UIModeChat    UIMode = "chat"
	UIModeAgentic UIMode = "agentic"
)

// ConversationMode maps the selector value to the backend mode.
func (u UIMode) ConversationMode() Mode {
	if u == UIModeAgentic {
		return ModeAgentic
	}
	return ModeNormal
}

// Toggle returns the other selector value.
func (u UIMode) Toggle() UIMode {
	if u == UIModeAgentic {
		return UIModeChat
	}
	return UIModeAgentic
}

// ParseUIMode parses "chat" or "agentic", case-insensitively.
func ParseUIMode(s string) (UIMode, error) {
	switch UIMode(strings.ToLower(strings.TrimSpace(s))) {
	case UIModeChat:
		return UIModeChat, nil
	case UIModeAgentic:
		return UIModeAgentic, nil
	}
	return "", errors.Errorf("unknown mode %q (want chat or agentic)", s)
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a chat thread. Messages are in chronological order.
type Conversation struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId,omitempty"`
	Title        string     `json:"title"`
	Mode         Mode       `json:"mode"`
	DocumentID   string     `json:"documentId,omitempty"`
	DocumentName string     `json:"documentName,omitempty"`
	SessionID    string     `json:"sessionId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Messages     []*Message `json:"messages,omitempty"`
}

// ConversationUpdate is the partial conversation returned by a send.
type ConversationUpdate struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
}

// ApplyUpdate copies the non-empty fields of u onto c. Mode and title are
// never touched.
func (c *Conversation) ApplyUpdate(u ConversationUpdate) {
	if u.SessionID != "" {
		c.SessionID = u.SessionID
	}
	if u.DocumentID != "" {
		c.DocumentID = u.DocumentID
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return "New Conversation"
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastAssistantMessage returns the most recent assistant message.
func (c *Conversation) LastAssistantMessage() *Message {
	return c.lastWithRole(RoleAssistant)
}

// LastUserMessage returns the most recent user message.
func (c *Conversation) LastUserMessage() *Message {
	return c.lastWithRole(RoleUser)
}

func (c *Conversation) lastWithRole(role Role) *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == role {
			return c.Messages[i]
		}
	}
	return nil
}

// MessageByID returns a message by its ID.
func (c *Conversation) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	if c.Messages != nil {
		clone.Messages = make([]*Message, len(c.Messages))
		for i, msg := range c.Messages {
			clone.Messages[i] = msg.Clone()
		}
	}
	return &clone
}

// Summary returns a copy without messages, as used by the sidebar.
func (c *Conversation) Summary() *Conversation {
	s := *c
	s.Messages = nil
	return &s
}

// =============================================================================
// USER AND SHARING
// =============================================================================

// User is the cached identity of the signed-in user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the name, falling back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// ShareResult is returned transiently by a share toggle. It is not stored.
type ShareResult struct {
	Link    string `json:"link,omitempty"`
	Message string `json:"message,omitempty"`
}

// SharedConversation is a conversation opened through a public share link.
type SharedConversation struct {
	OwnerName    string        `json:"ownerName"`
	Conversation *Conversation `json:"conversation"`
}
