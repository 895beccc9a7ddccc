// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nav

import (
	"sync"
)

// AuthChecker reports whether the user is signed in.
type AuthChecker interface {
	Authenticated() bool
}

// Navigator records the current route and notifies subscribers of moves.
// It is safe for concurrent use. Subscribers run on the caller's goroutine
// and must not call back into the navigator.
type Navigator struct {
	mu      sync.Mutex
	current Route
	history []Route
	subs    map[int]func(Route)
	nextID  int
}

// NewNavigator starts at the welcome route.
func NewNavigator() *Navigator {
	return &Navigator{
		current: Parse(PathWelcome),
		subs:    make(map[int]func(Route)),
	}
}

// Current returns the current route.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate moves to path and returns the new route.
func (n *Navigator) Navigate(path string) Route {
	r := Parse(path)
	n.mu.Lock()
	if r.Path != n.current.Path {
		n.history = append(n.history, n.current)
	}
	n.current = r
	subs := n.snapshotSubs()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
	return r
}

// Enter navigates to path, redirecting to the auth page when the target
// requires a session that auth does not have.
func (n *Navigator) Enter(path string, auth AuthChecker) Route {
	r := Parse(path)
	if r.Page.RequiresAuth() && (auth == nil || !auth.Authenticated()) {
		return n.Navigate(PathAuth)
	}
	return n.Navigate(path)
}

// Back returns to the previous route. ok is false when there is none.
func (n *Navigator) Back() (Route, bool) {
	n.mu.Lock()
	if len(n.history) == 0 {
		n.mu.Unlock()
		return Route{}, false
	}
	prev := n.history[len(n.history)-1]
	n.history = n.history[:len(n.history)-1]
	n.current = prev
	subs := n.snapshotSubs()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(prev)
	}
	return prev, true
}

// Subscribe registers fn for route changes and returns an unsubscribe func.
func (n *Navigator) Subscribe(fn func(Route)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *Navigator) snapshotSubs() []func(Route) {
	out := make([]func(Route), 0, len(n.subs))
	for _, fn := range n.subs {
		out = append(out, fn)
	}
	return out
}
