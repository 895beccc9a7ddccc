// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the legalai command tree.
//
// Running legalai with no subcommand starts the full-screen client. The
// subcommands expose the same backend operations for scripts and plain
// terminals, and every one of them accepts --json.
//
// # Usage
//
//	os.Exit(cli.Execute())
//
// # Commands Overview
//
// Session:
//   - login, logout, whoami: store or forget the bearer token and identity
//   - mode: show or set chat/agentic mode
//
// Conversations:
//   - conversations list|show|create|delete|delete-all
//   - send: send one message and print the reply
//   - chat: line-based interactive chat
//   - share, shared: publish a conversation, read a shared link
//
// Translation:
//   - translate, detect, translations
//
// # Exit Codes
//
// Execute maps failures to the Exit* constants in errors.go so scripts can
// tell a usage mistake from an expired session or an unreachable backend.
package cli
