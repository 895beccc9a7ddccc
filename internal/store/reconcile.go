// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/AnuGuin/LegalAI/internal/model"
)

// Reconcile merges the local message list with a server-confirmed one.
//
// The confirmed list wins outright: it replaces local in full, pending and
// local-only messages are discarded, and nothing is merged. The returned
// slice holds copies marked confirmed. Confirmed messages whose role is not
// user, assistant or system are left out. dropped counts every discarded
// entry from either list.
func Reconcile(local, confirmed []*model.Message) (msgs []*model.Message, dropped int) {
	for _, m := range local {
		if m != nil && !m.IsConfirmed() {
			dropped++
		}
	}

	msgs = make([]*model.Message, 0, len(confirmed))
	for _, m := range confirmed {
		if m == nil {
			continue
		}
		if !m.Role.Valid() {
			dropped++
			continue
		}
		c := m.Clone()
		c.State = model.StateConfirmed
		msgs = append(msgs, c)
	}
	return msgs, dropped
}
