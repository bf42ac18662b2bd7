// Package session persists which words a learner has ticked per section.
// Words are included until explicitly unticked.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/satindergrewal/wordrill/internal/catalog"
)

// ErrUnknownSession is returned for session IDs that were never created.
var ErrUnknownSession = errors.New("unknown session")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS selections (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	section    TEXT NOT NULL,
	word       TEXT NOT NULL,
	included   INTEGER NOT NULL,
	PRIMARY KEY (session_id, section, word)
);`

// Store manages selection sessions backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or connects to the session database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create starts a new session and returns its ID.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at) VALUES (?, ?)",
		id, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Exists reports whether the session was created.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return n > 0, nil
}

// SetIncluded records whether a word takes part in the session's drills.
func (s *Store) SetIncluded(ctx context.Context, id, section, word string, included bool) error {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrUnknownSession)
	}

	flag := 0
	if included {
		flag = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO selections (session_id, section, word, included) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, section, word) DO UPDATE SET included = excluded.included`,
		id, section, word, flag,
	)
	if err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	return nil
}

// Excluded returns the words of a section the session has unticked.
func (s *Store) Excluded(ctx context.Context, id, section string) (map[string]bool, error) {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrUnknownSession)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT word FROM selections WHERE session_id = ? AND section = ? AND included = 0",
		id, section,
	)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		out[word] = true
	}
	return out, rows.Err()
}

// Selected filters words down to those the session still includes,
// preserving their order.
func (s *Store) Selected(ctx context.Context, id, section string, words []catalog.Word) ([]catalog.Word, error) {
	excluded, err := s.Excluded(ctx, id, section)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Word, 0, len(words))
	for _, w := range words {
		if !excluded[w.ID] {
			out = append(out, w)
		}
	}
	return out, nil
}
