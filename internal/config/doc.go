// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// LegalAI client.
//
// # Sections
//
//   - api: backend base URL, optional request throttle, user agent
//   - reveal: batch size and tick interval of the response reveal animation
//   - ui: sidebar width, markdown rendering, default translation target
//   - log: zerolog level and log file
//   - cache: local SQLite history cache
//
// # Environment
//
// LEGALAI_API_URL, LEGALAI_DATA_DIR, LEGALAI_LOG_LEVEL and LEGALAI_RATE_LIMIT
// override file values.
package config
