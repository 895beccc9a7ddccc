// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/AnuGuin/LegalAI/internal/model"
)

// changedMsg means some store, the navigator or the session changed.
type changedMsg struct{}

// sendDoneMsg reports the end of a send or regenerate.
type sendDoneMsg struct {
	err error
}

// createdMsg reports a conversation created from the welcome page.
type createdMsg struct {
	conv  *model.Conversation
	first string
	err   error
}

// shareMsg reports a share toggle.
type shareMsg struct {
	enabled bool
	res     *model.ShareResult
	err     error
}

// deletedMsg reports a sidebar delete.
type deletedMsg struct {
	id        string
	all       bool
	count     int
	wasActive bool
	err       error
}

// sharedLoadedMsg carries a conversation opened through a share link.
type sharedLoadedMsg struct {
	shared *model.SharedConversation
	err    error
}

// translatedMsg carries a translation result.
type translatedMsg struct {
	tr  *model.Translation
	err error
}

// detectedMsg carries a detected language.
type detectedMsg struct {
	det *model.DetectedLanguage
	err error
}

// translationHistoryMsg carries the translation history.
type translationHistoryMsg struct {
	items []*model.Translation
	stale bool
	err   error
}

// loadedMsg reports the end of a conversation load.
type loadedMsg struct {
	id  string
	err error
}

// loginMsg reports the result of the auth form.
type loginMsg struct {
	err error
}
