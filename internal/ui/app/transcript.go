// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/ui/render"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
)

// transcriptOptions controls transcript rendering.
type transcriptOptions struct {
	width      int
	timestamps bool
	// content returns the text to show for a message; nil means Content.
	content func(*model.Message) string
	// streamingID is the message being revealed; it is shown unrendered.
	streamingID string
}

// renderTranscript renders messages top to bottom.
func renderTranscript(th *styles.Theme, md *render.Markdown, msgs []*model.Message, opts transcriptOptions) string {
	if len(msgs) == 0 {
		return th.Muted.Render("No messages yet. Ask your first question below.")
	}
	width := opts.width
	if width < 20 {
		width = 20
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		text := msg.Content
		if opts.content != nil {
			text = opts.content(msg)
		}

		var label, body string
		bubble := th.AssistantBubble
		switch msg.Role {
		case model.RoleUser:
			label = th.UserLabel.Render(msg.Role.DisplayName())
			bubble = th.UserBubble
			body = text
		case model.RoleSystem:
			label = th.SystemLabel.Render(msg.Role.DisplayName())
			bubble = th.SystemBubble
			body = text
		default:
			label = th.AssistantLabel.Render(msg.Role.DisplayName())
			if msg.ID == opts.streamingID || msg.IsLocal() {
				body = text
			} else {
				body = md.Render(text)
			}
		}
		if msg.IsLocal() {
			bubble = th.LocalBubble
		}

		header := label
		if msg.IsPending() {
			header += " " + th.PendingMarker.Render("sending...")
		}
		if opts.timestamps && !msg.CreatedAt.IsZero() {
			header += " " + th.Muted.Render(msg.CreatedAt.Local().Format("Jan 2 15:04"))
		}
		if len(msg.Attachments) > 0 {
			body = th.Attachment.Render("📎 "+strings.Join(msg.Attachments, ", ")) + "\n" + body
		}

		blocks = append(blocks, header+"\n"+bubble.Width(width-2).Render(body))
	}
	return strings.Join(blocks, "\n\n")
}
