// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the LegalAI backend.
//
// Every call is a single round trip: no retries and no client-level
// timeout. Callers bound calls through the context they pass in.
//
// Responses use the envelope {success, data?, message?}. Transport failures
// surface as *HTTPError, envelope failures as *EnvelopeError. Both are
// reachable with errors.As.
//
// Usage:
//
//	client := api.NewClient(cfg.API.BaseURL,
//	    api.WithTokenSource(sess),
//	    api.WithObserver(api.NewLogObserver(logger)),
//	)
//	conv, err := client.CreateConversation(ctx, api.CreateConversationRequest{
//	    Mode:  model.ModeNormal,
//	    Title: "Lease review",
//	})
package api
