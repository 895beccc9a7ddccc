// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal plays back an already complete assistant reply a few words
// at a time so it reads as if it were being typed.
//
// The animation is presentational only. The full text exists before the
// first frame and the stored message is never modified.
package reveal

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	// DefaultBatchSize is the number of tokens revealed per tick.
	DefaultBatchSize = 3

	// DefaultInterval is the wall-clock time between ticks.
	DefaultInterval = 60 * time.Millisecond
)

// Frame is one step of an animation. Text is the visible prefix of the
// source; the last frame has Done set and Text equal to the full source.
type Frame struct {
	MessageID string
	Text      string
	Done      bool
}

// Tokenize splits text into words, each carrying the whitespace that
// follows it. Leading whitespace is attached to the first token, so
// strings.Join(Tokenize(s), "") == s for every s.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	start := 0
	inSpace := false
	seenWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && inSpace && seenWord {
			tokens = append(tokens, text[start:i])
			start = i
		}
		if !space {
			seenWord = true
		}
		inSpace = space
	}
	return append(tokens, text[start:])
}

// =============================================================================
// ANIMATOR
// =============================================================================

// Animator runs at most one animation at a time.
type Animator struct {
	mu        sync.Mutex
	batchSize int
	interval  time.Duration
	current   *Handle
}

// New creates an animator. Non-positive arguments select the defaults.
func New(batchSize int, interval time.Duration) *Animator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{batchSize: batchSize, interval: interval}
}

// Start cancels any running animation and begins revealing text. onFrame
// is called from the animation goroutine; it must not call Cancel on the
// returned handle and must not block on a lock held while calling Start.
func (a *Animator) Start(messageID, text string, onFrame func(Frame)) *Handle {
	h := &Handle{
		messageID: messageID,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	a.mu.Lock()
	prev := a.current
	a.current = h
	a.mu.Unlock()

	// RELIABILITY: The previous animation is fully stopped before the new
	// one emits anything, so two animations never interleave frames.
	if prev != nil {
		prev.Cancel()
	}

	go a.run(h, Tokenize(text), onFrame)
	return h
}

// Cancel stops the running animation, if any.
func (a *Animator) Cancel() {
	a.mu.Lock()
	h := a.current
	a.current = nil
	a.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// Active reports whether an animation is running.
func (a *Animator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil && !a.current.finished()
}

func (a *Animator) run(h *Handle, tokens []string, onFrame func(Frame)) {
	defer func() {
		a.mu.Lock()
		if a.current == h {
			a.current = nil
		}
		a.mu.Unlock()
		close(h.done)
	}()

	if len(tokens) == 0 {
		h.emit(onFrame, Frame{MessageID: h.messageID, Done: true})
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var visible strings.Builder
	shown := 0
	for shown < len(tokens) {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}
		end := shown + a.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		for _, tok := range tokens[shown:end] {
			visible.WriteString(tok)
		}
		shown = end
		if !h.emit(onFrame, Frame{MessageID: h.messageID, Text: visible.String(), Done: shown == len(tokens)}) {
			return
		}
	}
}

// =============================================================================
// HANDLE
// =============================================================================

// Handle controls one animation.
type Handle struct {
	messageID string

	mu        sync.Mutex
	cancelled bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// MessageID returns the id of the message being revealed.
func (h *Handle) MessageID() string { return h.messageID }

// Done is closed when the animation finishes or is cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel stops the animation. No frame is delivered after Cancel returns.
// Safe to call multiple times.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.stopOnce.Do(func() { close(h.stop) })
}

// Cancelled reports whether Cancel was called.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// emit delivers f unless the handle was cancelled. The lock is held across
// the callback so Cancel waits for an in-flight frame.
func (h *Handle) emit(onFrame func(Frame), f Frame) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return false
	}
	if onFrame != nil {
		onFrame(f)
	}
	return true
}
