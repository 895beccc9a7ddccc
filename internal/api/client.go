// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/AnuGuin/LegalAI/internal/util"
)

const (
	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// bodySummaryLen bounds the request body excerpt handed to observers.
	bodySummaryLen = 200
)

// TokenSource supplies the bearer token. An empty token is not an error.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client talks to the backend. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	observer   safeObserver
	limiter    *rate.Limiter
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithObserver sets the observability sink.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer.inner = o }
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger used to report observer panics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.observer.log = &l }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: NormalizeBaseURL(baseURL),
		// No Timeout: calls run to completion or transport failure unless
		// the caller's context says otherwise.
		httpClient: &http.Client{},
		tokens:     TokenFunc(func() string { return "" }),
		observer:   safeObserver{inner: NopObserver{}, log: &log.Logger},
		userAgent:  "legalai-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// NormalizeBaseURL strips trailing slashes and a trailing "/api" segment.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, "/api")
	return strings.TrimRight(u, "/")
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// Attachment is a file sent with a message.
type Attachment struct {
	Name string
	Data []byte
}

// LoadAttachment reads a file from disk for upload.
func LoadAttachment(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read attachment %s", path)
	}
	return &Attachment{Name: filepath.Base(path), Data: data}, nil
}

type request struct {
	method string
	path   string
	// body is JSON-encoded unless form is set.
	body any
	form *multipartForm
	// anonymous requests never carry a token.
	anonymous bool
}

type multipartForm struct {
	fields []formField
	file   *Attachment
}

type formField struct{ name, value string }

// envelope is the wrapper every backend response uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (e *envelope) hasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// buildBody encodes the request body and returns its Content-Type.
func (r *request) buildBody() (io.Reader, string, string, error) {
	if r.form != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range r.form.fields {
			if err := w.WriteField(f.name, f.value); err != nil {
				return nil, "", "", errors.Wrap(err, "write form field")
			}
		}
		summary := fmt.Sprintf("multipart fields=%d", len(r.form.fields))
		if r.form.file != nil {
			fw, err := w.CreateFormFile("file", r.form.file.Name)
			if err != nil {
				return nil, "", "", errors.Wrap(err, "create form file")
			}
			if _, err := fw.Write(r.form.file.Data); err != nil {
				return nil, "", "", errors.Wrap(err, "write form file")
			}
			summary += fmt.Sprintf(" file=%s (%d bytes)", r.form.file.Name, len(r.form.file.Data))
		}
		if err := w.Close(); err != nil {
			return nil, "", "", errors.Wrap(err, "close multipart writer")
		}
		// The boundary comes from the writer; nothing is hand-written here.
		return &buf, w.FormDataContentType(), summary, nil
	}
	if r.body == nil {
		return nil, "", "", nil
	}
	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", "", errors.Wrap(err, "encode request body")
	}
	return bytes.NewReader(data), "application/json", util.TruncateRunes(string(data), bodySummaryLen), nil
}

// readResponse reads a response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, errors.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	return body, nil
}

// do performs one round trip and decodes the envelope. Non-2xx responses and
// transport failures become *HTTPError.
func (c *Client) do(ctx context.Context, r request) (*envelope, error) {
	body, contentType, summary, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if !r.anonymous {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	info := RequestInfo{
		Method:      r.method,
		URL:         req.URL.String(),
		Header:      redactHeaders(req.Header),
		BodySummary: summary,
	}
	c.observer.started(info)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			herr := newNetworkError(err)
			c.observer.failed(info, herr, "")
			return nil, herr
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		herr := newNetworkError(err)
		c.observer.failed(info, herr, "")
		return nil, herr
	}
	defer resp.Body.Close()

	raw, err := readResponse(resp)
	if err != nil {
		herr := &HTTPError{Status: resp.StatusCode, Message: err.Error(), err: err}
		c.observer.failed(info, herr, "")
		return nil, herr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := newStatusError(resp.StatusCode, raw)
		c.observer.failed(info, herr, herr.Body)
		return nil, herr
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			herr := &HTTPError{
				Status:  resp.StatusCode,
				Message: "invalid JSON response",
				Body:    string(raw),
				err:     err,
			}
			c.observer.failed(info, herr, herr.Body)
			return nil, herr
		}
	}
	c.observer.succeeded(info, resp.StatusCode, time.Since(start))
	return &env, nil
}

// decodeData unwraps the envelope of a call that requires data.
func decodeData[T any](env *envelope, op string) (T, error) {
	var out T
	if !env.Success {
		return out, &EnvelopeError{Op: op, ServerMessage: env.Message}
	}
	if !env.hasData() {
		return out, &EnvelopeError{Op: op, ServerMessage: env.Message, err: ErrNoData}
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, &EnvelopeError{Op: op, ServerMessage: env.Message, err: err}
	}
	return out, nil
}

// checkSuccess unwraps the envelope of a call that needs no data.
func checkSuccess(env *envelope, op string) error {
	if !env.Success {
		return &EnvelopeError{Op: op, ServerMessage: env.Message}
	}
	return nil
}
