// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds page-level client state: the open conversation with
// its optimistic send flow, and the sidebar history list.
//
// # Conversation lifecycle
//
//	Load:    loading -> ready | error (error navigates to "/" and is final)
//	Send:    append pending user message, sending=true
//	         ok:   refetch, Reconcile replaces messages, reveal last reply
//	         fail: append one local fallback reply, notify
//
// Only one send may be outstanding per conversation; a second one is
// rejected with ErrSendInFlight.
package store
