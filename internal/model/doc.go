// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures exchanged with the LegalAI
// backend: conversations, messages, translations and the signed-in user.
//
// # Key Types
//
//   - Conversation: a chat thread with its ordered messages and mode
//   - Message: one chat turn, tagged pending, confirmed or local
//   - Translation: a stored translation record
//   - Mode / UIMode: backend conversation mode and persisted selector value
//
// Messages carry a MessageState so the optimistic copy shown before a round
// trip completes can never be confused with the server-confirmed one.
package model
