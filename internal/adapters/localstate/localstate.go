// Package localstate keeps the signed-in user on disk so a restart does not
// force a fresh login. It is a cache of a single remote record, never a
// source of truth: logout clears it and every restore re-fetches presence.
package localstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/ports"
)

// sessionKey is the single well-known row identifier; the table never holds
// more than one session.
const sessionKey = "current"

const schema = `
CREATE TABLE IF NOT EXISTS session (
	key         TEXT PRIMARY KEY,
	user_json   TEXT NOT NULL,
	saved_at    TIMESTAMP NOT NULL
);`

// Store implements ports.SessionStore on a local sqlite file.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the sqlite file and ensures the schema exists.
// The migrate command owns schema evolution; this bootstrap only covers the
// fresh-file case so serve works standalone.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open local state db: %w", err)
	}

	// sqlite tolerates a single writer only
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init local state schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, user *entities.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	query := `
		INSERT INTO session (key, user_json, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET user_json = excluded.user_json, saved_at = excluded.saved_at`

	if _, err := s.db.ExecContext(ctx, query, sessionKey, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*entities.User, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT user_json FROM session WHERE key = ?`, sessionKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrNoActiveSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var user entities.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &user, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the migrate command.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

var _ ports.SessionStore = (*Store)(nil)
