// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/util"
)

// State is the persisted session. User holds the JSON-encoded identity.
type State struct {
	AuthToken string       `json:"authToken,omitempty"`
	User      string       `json:"user,omitempty"`
	AIMode    model.UIMode `json:"aiMode,omitempty"`
}

// ErrCorrupt is returned by Load when the session file cannot be parsed.
var ErrCorrupt = errors.New("session file is corrupt")

// Store persists session state.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps the session in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the session. A missing file yields an empty State.
func (s *FileStore) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, errors.Wrap(err, "read session")
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, errors.Wrapf(ErrCorrupt, "%s: %v", s.path, err)
	}
	return st, nil
}

// Save writes the session atomically.
// SECURITY: The file holds a bearer token and is written 0600.
func (s *FileStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return util.AtomicWriteFile(s.path, data, 0600)
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps the session in memory. Used by tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	// Err, when set, is returned from Load.
	Err error
}

// NewMemoryStore returns a store seeded with st.
func NewMemoryStore(st State) *MemoryStore {
	return &MemoryStore{state: st}
}

func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return State{}, m.Err
	}
	return m.state, nil
}

func (m *MemoryStore) Save(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	return nil
}
