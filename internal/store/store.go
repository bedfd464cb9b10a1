// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

// Package store implements moviebob's SQLite persistence layer.
//
// Every exported method is a short unit of work against the pooled database
// handle: it runs its statements, commits, and leaves no open transaction
// behind on any exit path. Insert-or-ignore upserts are the de-duplication
// mechanism, so a constraint conflict is never an error. The whole program is
// re-run safe: a crash mid-run loses at most the in-flight operation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed store for users, diary entries, movie metadata and
// digest markers.
type Store struct {
	db *sql.DB
}

// Open opens (creating and migrating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection also makes ":memory:" databases behave in tests.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	nickname TEXT NOT NULL,
	feed_url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS movies (
	movie_id INTEGER PRIMARY KEY,
	letterboxd_id TEXT NOT NULL UNIQUE,
	tmdb_id INTEGER,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	year INTEGER NOT NULL,
	rating REAL NOT NULL,
	rewatch INTEGER NOT NULL,
	watched_at TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users (user_id),
	notified INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tmdb (
	tmdb_id INTEGER PRIMARY KEY,
	imdb_id TEXT,
	release_date TEXT,
	runtime INTEGER,
	shortfilm INTEGER NOT NULL DEFAULT 0,
	letterboxd_avg REAL NOT NULL DEFAULT 0,
	letterboxd_avg_at TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS digests (
	digest_id INTEGER PRIMARY KEY,
	kind TEXT NOT NULL,
	period TEXT NOT NULL,
	UNIQUE (kind, period)
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Additive column migrations for databases created by older versions.
	// A column's absence is detected by a probe query.
	for _, m := range []struct{ probe, alter string }{
		{
			"SELECT tmdb_id FROM movies LIMIT 1",
			"ALTER TABLE movies ADD COLUMN tmdb_id INTEGER",
		},
		{
			"SELECT shortfilm FROM tmdb LIMIT 1",
			"ALTER TABLE tmdb ADD COLUMN shortfilm INTEGER NOT NULL DEFAULT 0",
		},
	} {
		var probe any
		err := s.db.QueryRowContext(ctx, m.probe).Scan(&probe)
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.alter); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	return nil
}

// Timestamps are stored as RFC 3339 UTC strings so that lexicographic range
// comparisons match chronological order.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
