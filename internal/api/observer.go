// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RequestInfo describes an outgoing request for observers. Header has the
// Authorization value redacted.
type RequestInfo struct {
	Method      string
	URL         string
	Header      http.Header
	BodySummary string
}

// Observer receives a report for every call. Implementations must not block.
type Observer interface {
	RequestStarted(info RequestInfo)
	RequestSucceeded(info RequestInfo, status int, elapsed time.Duration)
	RequestFailed(info RequestInfo, err error, responseBody string)
}

// NopObserver discards all reports.
type NopObserver struct{}

func (NopObserver) RequestStarted(RequestInfo)                       {}
func (NopObserver) RequestSucceeded(RequestInfo, int, time.Duration) {}
func (NopObserver) RequestFailed(RequestInfo, error, string)         {}

// LogObserver writes reports to a zerolog logger.
type LogObserver struct {
	log zerolog.Logger
}

// NewLogObserver returns an observer logging at debug (requests) and
// warn (failures) levels.
func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) RequestStarted(info RequestInfo) {
	o.log.Debug().
		Str("method", info.Method).
		Str("url", info.URL).
		Interface("headers", info.Header).
		Str("body", info.BodySummary).
		Msg("api request")
}

func (o *LogObserver) RequestSucceeded(info RequestInfo, status int, elapsed time.Duration) {
	o.log.Debug().
		Str("method", info.Method).
		Str("url", info.URL).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("api response")
}

func (o *LogObserver) RequestFailed(info RequestInfo, err error, responseBody string) {
	o.log.Warn().
		Err(err).
		Str("method", info.Method).
		Str("url", info.URL).
		Str("response", responseBody).
		Msg("api request failed")
}

// safeObserver shields calls from observer panics.
type safeObserver struct {
	inner Observer
	log   *zerolog.Logger
}

func (s safeObserver) guard() {
	if r := recover(); r != nil && s.log != nil {
		s.log.Error().Interface("panic", r).Msg("api observer panicked")
	}
}

func (s safeObserver) started(info RequestInfo) {
	defer s.guard()
	s.inner.RequestStarted(info)
}

func (s safeObserver) succeeded(info RequestInfo, status int, elapsed time.Duration) {
	defer s.guard()
	s.inner.RequestSucceeded(info, status, elapsed)
}

func (s safeObserver) failed(info RequestInfo, err error, body string) {
	defer s.guard()
	s.inner.RequestFailed(info, err, body)
}

// redactHeaders copies h with credentials masked.
// SECURITY: Bearer tokens never reach the log sink.
func redactHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "Bearer [REDACTED]")
	}
	return out
}
