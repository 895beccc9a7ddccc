// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the signed-in identity of the client.
//
// The persisted values are the bearer token, the user object (stored as a
// JSON string) and the selected AI mode. They live in a single JSON file
// written atomically with owner-only permissions.
//
// A Provider reads the file once on Init and is then passed explicitly to
// everything that needs the token or the user. Logout clears the token and
// the user but keeps the mode preference.
package session
