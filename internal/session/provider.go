// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AnuGuin/LegalAI/internal/model"
)

// ErrUnauthenticated means the token or the user is missing or unreadable.
var ErrUnauthenticated = errors.New("not authenticated")

// Provider is the in-memory view of the session. It is safe for concurrent
// use and implements api.TokenSource.
type Provider struct {
	mu     sync.RWMutex
	store  Store
	state  State
	loaded bool
	log    zerolog.Logger
}

// NewProvider creates a provider over store. Call Init before use.
func NewProvider(store Store) *Provider {
	return &Provider{
		store: store,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// Init reads the stored session once. Later calls are no-ops; use Reload
// to pick up external changes. A corrupt file is treated as signed out.
func (p *Provider) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	return p.loadLocked()
}

// Reload re-reads the stored session.
func (p *Provider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *Provider) loadLocked() error {
	st, err := p.store.Load()
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			p.log.Warn().Err(err).Msg("discarding unreadable session")
			p.state = State{}
			p.loaded = true
			return nil
		}
		return err
	}
	p.state = st
	p.loaded = true
	return nil
}

// Token returns the bearer token, or "" when signed out.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.AuthToken
}

// User returns the cached identity. ok is false when absent or unparseable.
func (p *Provider) User() (user *model.User, ok bool) {
	p.mu.RLock()
	raw := p.state.User
	p.mu.RUnlock()
	u, err := parseUser(raw)
	if err != nil {
		return nil, false
	}
	return u, true
}

// RequireAuth returns the user when both the token and a readable user are
// present, else ErrUnauthenticated.
func (p *Provider) RequireAuth() (*model.User, error) {
	p.mu.RLock()
	token, raw := p.state.AuthToken, p.state.User
	p.mu.RUnlock()

	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	u, err := parseUser(raw)
	if err != nil {
		p.log.Debug().Err(err).Msg("cached user unreadable, forcing re-authentication")
		return nil, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	return u, nil
}

// Authenticated reports whether RequireAuth would succeed.
func (p *Provider) Authenticated() bool {
	_, err := p.RequireAuth()
	return err == nil
}

// Login stores a token and identity.
func (p *Provider) Login(token string, user model.User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.state
	next.AuthToken = token
	next.User = string(raw)
	if err := p.store.Save(next); err != nil {
		return errors.Wrap(err, "save session")
	}
	p.state = next
	p.loaded = true
	return nil
}

// Logout clears the token and the user. The mode preference is kept.
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := State{AIMode: p.state.AIMode}
	if err := p.store.Save(next); err != nil {
		return errors.Wrap(err, "save session")
	}
	p.state = next
	return nil
}

// Mode returns the selected AI mode, defaulting to chat.
func (p *Provider) Mode() model.UIMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state.AIMode == model.UIModeAgentic {
		return model.UIModeAgentic
	}
	return model.UIModeChat
}

// SetMode persists the selected AI mode.
func (p *Provider) SetMode(m model.UIMode) error {
	if _, err := model.ParseUIMode(string(m)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.state
	next.AIMode = m
	if err := p.store.Save(next); err != nil {
		return errors.Wrap(err, "save session")
	}
	p.state = next
	return nil
}

func parseUser(raw string) (*model.User, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("no cached user")
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, errors.Wrap(err, "parse cached user")
	}
	return &u, nil
}
