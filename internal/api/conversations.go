// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/AnuGuin/LegalAI/internal/model"
)

// Generic failure texts returned by EnvelopeError.Error().
const (
	opCreateConversation  = "Failed to create conversation"
	opListConversations   = "Failed to fetch conversations"
	opGetConversation     = "Failed to fetch conversation"
	opGetConversationInfo = "Failed to fetch conversation info"
	opSendMessage         = "Failed to send message"
	opDeleteConversation  = "Failed to delete conversation"
	opDeleteAll           = "Failed to delete all conversations"
	opSetShare            = "Failed to update share status"
	opGetShared           = "Failed to fetch shared conversation"
)

// CreateConversationRequest is the body of a create call. Empty optional
// fields are omitted from the JSON.
type CreateConversationRequest struct {
	Mode         model.Mode `json:"mode"`
	Title        string     `json:"title,omitempty"`
	DocumentID   string     `json:"documentId,omitempty"`
	DocumentName string     `json:"documentName,omitempty"`
	SessionID    string     `json:"sessionId,omitempty"`
}

// SendMessageRequest is one user turn. Attachment switches the body to
// multipart.
type SendMessageRequest struct {
	Content    string
	Mode       model.Mode
	Attachment *Attachment
}

// SendResult is the outcome of a send: the stored message and the partial
// conversation update.
type SendResult struct {
	Message      *model.Message           `json:"message"`
	Conversation model.ConversationUpdate `json:"conversation"`
}

func conversationPath(id string) string {
	return "/api/chat/conversations/" + url.PathEscape(id)
}

// CreateConversation creates a conversation. Mode is fixed from here on.
func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (*model.Conversation, error) {
	env, err := c.do(ctx, request{method: http.MethodPost, path: "/api/chat/conversations", body: req})
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Conversation](env, opCreateConversation)
}

// ListConversations returns the user's conversations, newest first as the
// backend orders them. Each may carry its messages.
func (c *Client) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	env, err := c.do(ctx, request{method: http.MethodGet, path: "/api/chat/conversations"})
	if err != nil {
		return nil, err
	}
	return decodeData[[]*model.Conversation](env, opListConversations)
}

// GetConversation returns a conversation with all of its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	env, err := c.do(ctx, request{method: http.MethodGet, path: conversationPath(id)})
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Conversation](env, opGetConversation)
}

// GetConversationInfo returns a conversation without messages.
func (c *Client) GetConversationInfo(ctx context.Context, id string) (*model.Conversation, error) {
	env, err := c.do(ctx, request{method: http.MethodGet, path: conversationPath(id) + "/info"})
	if err != nil {
		return nil, err
	}
	conv, err := decodeData[*model.Conversation](env, opGetConversationInfo)
	if err != nil {
		return nil, err
	}
	conv.Messages = nil
	return conv, nil
}

// SendMessage posts a user message. The body is JSON {message, mode}, or a
// multipart form with fields message, mode and file when an attachment is
// present.
func (c *Client) SendMessage(ctx context.Context, conversationID string, req SendMessageRequest) (*SendResult, error) {
	r := request{method: http.MethodPost, path: conversationPath(conversationID) + "/messages"}
	if req.Attachment != nil {
		r.form = &multipartForm{
			fields: []formField{
				{name: "message", value: req.Content},
				{name: "mode", value: string(req.Mode)},
			},
			file: req.Attachment,
		}
	} else {
		r.body = struct {
			Message string     `json:"message"`
			Mode    model.Mode `json:"mode"`
		}{req.Content, req.Mode}
	}

	env, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	res, err := decodeData[*SendResult](env, opSendMessage)
	if err != nil {
		return nil, err
	}
	if res.Conversation.ID == "" {
		res.Conversation.ID = conversationID
	}
	return res, nil
}

// DeleteConversation deletes one conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	env, err := c.do(ctx, request{method: http.MethodDelete, path: conversationPath(id)})
	if err != nil {
		return err
	}
	return checkSuccess(env, opDeleteConversation)
}

// DeleteAllConversations deletes every conversation of the user and returns
// how many were removed.
func (c *Client) DeleteAllConversations(ctx context.Context) (int, error) {
	env, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/chat/conversations"})
	if err != nil {
		return 0, err
	}
	if err := checkSuccess(env, opDeleteAll); err != nil {
		return 0, err
	}
	if !env.hasData() {
		return 0, nil
	}
	out, err := decodeData[struct {
		DeletedCount int `json:"deletedCount"`
	}](env, opDeleteAll)
	if err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// SetShare enables or disables the public link of a conversation. Enabling
// must yield a link; disabling yields only a status message.
func (c *Client) SetShare(ctx context.Context, conversationID string, enabled bool) (*model.ShareResult, error) {
	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   conversationPath(conversationID) + "/share",
		body: struct {
			Share bool `json:"share"`
		}{enabled},
	})
	if err != nil {
		return nil, err
	}
	if err := checkSuccess(env, opSetShare); err != nil {
		return nil, err
	}

	res := &model.ShareResult{}
	if env.hasData() {
		if res, err = decodeData[*model.ShareResult](env, opSetShare); err != nil {
			return nil, err
		}
	}
	if res.Message == "" {
		res.Message = env.Message
	}
	if enabled && res.Link == "" {
		return nil, &EnvelopeError{Op: opSetShare, ServerMessage: env.Message, err: ErrNoData}
	}
	return res, nil
}

// GetSharedConversation opens a public share link. No token is sent.
func (c *Client) GetSharedConversation(ctx context.Context, link string) (*model.SharedConversation, error) {
	env, err := c.do(ctx, request{
		method:    http.MethodGet,
		path:      "/api/chat/shared/" + url.PathEscape(link),
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	shared, err := decodeData[*model.SharedConversation](env, opGetShared)
	if err != nil {
		return nil, err
	}
	if shared.Conversation == nil {
		return nil, &EnvelopeError{Op: opGetShared, ServerMessage: env.Message, err: ErrNoData}
	}
	return shared, nil
}
