// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache keeps a local SQLite copy of the conversation list and the
// translation history so the sidebar can still show something when the
// backend is unreachable.
//
// The cache is write-through from successful list calls and is never
// authoritative: any successful fetch replaces its contents.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/AnuGuin/LegalAI/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	mode       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	json       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS translations (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	json       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Cache is a SQLite-backed history cache. Safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path. Use ":memory:" for an
// in-process cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.Wrap(err, "create cache directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}

	// SQLite handles one writer at a time; a single connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "apply %q", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create cache schema")
	}
	return &Cache{db: db, path: path}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database path.
func (c *Cache) Path() string { return c.path }

// =============================================================================
// CONVERSATIONS
// =============================================================================

// PutConversations replaces the cached conversation list. Messages are not
// cached; only the summaries the sidebar needs.
func (c *Cache) PutConversations(ctx context.Context, convs []*model.Conversation) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return errors.Wrap(err, "clear conversations")
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO conversations (id, title, mode, updated_at, position, json) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for i, conv := range convs {
		if conv == nil {
			continue
		}
		data, err := json.Marshal(conv.Summary())
		if err != nil {
			return errors.Wrapf(err, "encode conversation %s", conv.ID)
		}
		if _, err := stmt.ExecContext(ctx, conv.ID, conv.Title, string(conv.Mode), conv.UpdatedAt.UnixMilli(), i, string(data)); err != nil {
			return errors.Wrapf(err, "insert conversation %s", conv.ID)
		}
	}
	if err := setMeta(ctx, tx, "conversations_synced_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Conversations returns the cached list in the order it was stored.
func (c *Cache) Conversations(ctx context.Context) ([]*model.Conversation, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT json FROM conversations ORDER BY position")
	if err != nil {
		return nil, errors.Wrap(err, "query conversations")
	}
	defer rows.Close()

	var out []*model.Conversation
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		var conv model.Conversation
		if err := json.Unmarshal([]byte(raw), &conv); err != nil {
			return nil, errors.Wrap(err, "decode conversation")
		}
		out = append(out, &conv)
	}
	return out, errors.Wrap(rows.Err(), "iterate conversations")
}

// DeleteConversation removes one cached conversation.
func (c *Cache) DeleteConversation(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	return errors.Wrap(err, "delete conversation")
}

// ConversationsSyncedAt returns when the list was last written. ok is false
// when it never was.
func (c *Cache) ConversationsSyncedAt(ctx context.Context) (time.Time, bool) {
	var v string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", "conversations_synced_at").Scan(&v)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, err == nil
}

// =============================================================================
// TRANSLATIONS
// =============================================================================

// PutTranslations replaces the cached translation history.
func (c *Cache) PutTranslations(ctx context.Context, items []*model.Translation) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM translations"); err != nil {
		return errors.Wrap(err, "clear translations")
	}
	for i, tr := range items {
		if tr == nil {
			continue
		}
		data, err := json.Marshal(tr)
		if err != nil {
			return errors.Wrapf(err, "encode translation %s", tr.ID)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO translations (id, created_at, position, json) VALUES (?, ?, ?, ?)",
			tr.ID, tr.CreatedAt.UnixMilli(), i, string(data)); err != nil {
			return errors.Wrapf(err, "insert translation %s", tr.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Translations returns the cached history in stored order.
func (c *Cache) Translations(ctx context.Context) ([]*model.Translation, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT json FROM translations ORDER BY position")
	if err != nil {
		return nil, errors.Wrap(err, "query translations")
	}
	defer rows.Close()

	var out []*model.Translation
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "scan translation")
		}
		var tr model.Translation
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			return nil, errors.Wrap(err, "decode translation")
		}
		out = append(out, &tr)
	}
	return out, errors.Wrap(rows.Err(), "iterate translations")
}

// Clear removes everything. Called on logout.
func (c *Cache) Clear(ctx context.Context) error {
	for _, table := range []string{"conversations", "translations", "meta"} {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}
	return nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return errors.Wrapf(err, "set meta %s", key)
}
