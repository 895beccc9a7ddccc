// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/AnuGuin/LegalAI/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the three roles the backend emits.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "LegalAI"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE STATE
// =============================================================================

// MessageState tags where a message came from.
type MessageState int

const (
	// StateConfirmed is a message returned by the backend. Zero value, so
	// anything decoded from JSON is confirmed.
	StateConfirmed MessageState = iota

	// StatePending is an optimistic user message shown before the send
	// round trip resolves. It is superseded by the next refetch.
	StatePending

	// StateLocal is a client-only message (the send-failure fallback). It is
	// never sent to or confirmed by the backend.
	StateLocal
)

// String returns the state name.
func (s MessageState) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StatePending:
		return "pending"
	case StateLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Prefixes for client-generated identifiers.
const (
	PendingIDPrefix = "tmp-"
	LocalIDPrefix   = "local-"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a conversation.
type Message struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Role        Role           `json:"role"`
	Attachments []string       `json:"attachments,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`

	// State is client-side bookkeeping and never serialised.
	State MessageState `json:"-"`
}

// NewPendingUserMessage creates the optimistic user message appended before
// a send call is issued.
func NewPendingUserMessage(content string, attachments []string) *Message {
	return &Message{
		ID:          PendingIDPrefix + uuid.NewString(),
		Content:     content,
		Role:        RoleUser,
		Attachments: attachments,
		CreatedAt:   time.Now(),
		State:       StatePending,
	}
}

// NewLocalAssistantMessage creates a client-only assistant message.
func NewLocalAssistantMessage(content string) *Message {
	return &Message{
		ID:        LocalIDPrefix + uuid.NewString(),
		Content:   content,
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		State:     StateLocal,
	}
}

// IsPending reports whether the message is an unconfirmed optimistic copy.
func (m *Message) IsPending() bool { return m.State == StatePending }

// IsLocal reports whether the message exists only on this client.
func (m *Message) IsLocal() bool { return m.State == StateLocal }

// IsConfirmed reports whether the message came from the backend.
func (m *Message) IsConfirmed() bool { return m.State == StateConfirmed }

// Preview returns a single-line preview of the content.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.SingleLine(m.Content), maxLen)
}

// Clone returns a copy that shares no slices or maps with m.
func (m *Message) Clone() *Message {
	c := *m
	if m.Attachments != nil {
		c.Attachments = append([]string(nil), m.Attachments...)
	}
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
