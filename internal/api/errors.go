// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoData is the cause of an EnvelopeError when success was true but the
// data field was absent.
var ErrNoData = errors.New("response envelope has no data")

// HTTPError is a transport failure: a non-2xx status or a request that never
// got a response. Status is 0 when no response was received.
type HTTPError struct {
	Status  int
	Message string
	// Body is the raw response body, if any.
	Body string

	err error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.err }

// IsNotFound reports whether the backend answered 404.
func (e *HTTPError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IsUnauthorized reports whether the backend rejected the credentials.
func (e *HTTPError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNetwork reports whether no response was received.
func (e *HTTPError) IsNetwork() bool { return e.Status == 0 }

// EnvelopeError reports success=false or a missing data field. Error()
// returns the generic per-call text; ServerMessage keeps whatever the
// backend said.
type EnvelopeError struct {
	Op            string
	ServerMessage string

	err error
}

func (e *EnvelopeError) Error() string { return e.Op }

func (e *EnvelopeError) Unwrap() error { return e.err }

// Detail returns the server message when present, else the generic text.
func (e *EnvelopeError) Detail() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	return e.Op
}

// errorBody is the shape of a JSON error response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// newStatusError builds the HTTPError for a non-2xx response. The message is
// the JSON message (or error) field, else the raw text, else a generic
// status line.
func newStatusError(status int, body []byte) *HTTPError {
	raw := strings.TrimSpace(string(body))
	msg := ""

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		msg = eb.Message
		if msg == "" {
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = raw
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &HTTPError{Status: status, Message: msg, Body: raw}
}

func newNetworkError(err error) *HTTPError {
	return &HTTPError{Message: err.Error(), err: err}
}

// Describe returns the text to show a user for err: the backend's own
// message when one is available, else the error text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var eerr *EnvelopeError
	if errors.As(err, &eerr) {
		return eerr.Detail()
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		if herr.IsNetwork() {
			return "Cannot reach the server: " + herr.Message
		}
		return herr.Message
	}
	return err.Error()
}
