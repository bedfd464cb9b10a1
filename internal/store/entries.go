// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"database/sql"
	"time"
)

// User is a watched Letterboxd account.
type User struct {
	ID       int64
	Username string
	Nickname string
	FeedURL  string
}

// Entry is one diary log entry: a single watch of a movie by a user.
type Entry struct {
	ID           int64
	LetterboxdID string
	TMDBID       int64 // 0 means not yet resolved
	URL          string
	Title        string
	Year         int
	Rating       float64 // 0 means unrated (Letterboxd disallows a real 0)
	Rewatch      bool
	WatchedAt    time.Time
	UserID       int64
	Notified     bool
}

// CreateUser creates the user if it doesn't exist yet and returns its row.
// The upsert is keyed by username; an existing row keeps its values, so
// re-running with the same username is idempotent. An empty nickname defaults
// to the username.
func (s *Store) CreateUser(ctx context.Context, username, nickname, feedURL string) (User, error) {
	if nickname == "" {
		nickname = username
	}
	u := User{Username: username, Nickname: nickname, FeedURL: feedURL}
	// DO UPDATE on the conflict key itself is a no-op write that makes
	// RETURNING yield the row in both the insert and the conflict case,
	// replacing the old insert-then-select dance.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, nickname, feed_url)
		VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET username = excluded.username
		RETURNING user_id, nickname, feed_url;
	`, username, nickname, feedURL).Scan(&u.ID, &u.Nickname, &u.FeedURL)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateEntry inserts the entry if its letterboxd_id hasn't been seen before
// and returns the row id. On conflict the existing row is kept untouched
// (first write wins, notified and tmdb_id stay as they are), so re-ingesting
// a feed is a no-op.
func (s *Store) CreateEntry(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO movies (letterboxd_id, tmdb_id, url, title, year, rating, rewatch, watched_at, user_id, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (letterboxd_id) DO UPDATE SET letterboxd_id = excluded.letterboxd_id
		RETURNING movie_id;
	`, e.LetterboxdID, nullableID(e.TMDBID), e.URL, e.Title, e.Year, e.Rating, e.Rewatch, formatTime(e.WatchedAt), e.UserID).Scan(&id)
	return id, err
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// EntriesMissingTMDBID returns all entries that haven't been resolved to a
// TMDB id yet.
func (s *Store) EntriesMissingTMDBID(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT movie_id, letterboxd_id, url, title, year, rating, rewatch, watched_at, user_id, notified
		FROM movies
		WHERE tmdb_id IS NULL OR tmdb_id = 0
		ORDER BY movie_id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			watchedAt string
		)
		if err := rows.Scan(&e.ID, &e.LetterboxdID, &e.URL, &e.Title, &e.Year, &e.Rating, &e.Rewatch, &watchedAt, &e.UserID, &e.Notified); err != nil {
			return nil, err
		}
		e.WatchedAt = parseTime(watchedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetEntryTMDBID records the resolved TMDB id for an entry. A previously set
// id is never overwritten or cleared.
func (s *Store) SetEntryTMDBID(ctx context.Context, movieID, tmdbID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE movies SET tmdb_id = ?
		WHERE movie_id = ? AND (tmdb_id IS NULL OR tmdb_id = 0);
	`, tmdbID, movieID)
	return err
}

// NotifyItem is an un-notified entry joined with the data needed to format
// its notification message.
type NotifyItem struct {
	MovieID  int64
	Title    string
	URL      string
	Rewatch  bool
	TMDBID   int64
	Nickname string
}

// UnnotifiedEntries returns all entries whose notification hasn't been
// confirmed sent yet.
func (s *Store) UnnotifiedEntries(ctx context.Context) ([]NotifyItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.movie_id, m.title, m.url, m.rewatch, COALESCE(m.tmdb_id, 0), u.nickname
		FROM movies m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.notified = 0
		ORDER BY m.movie_id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NotifyItem
	for rows.Next() {
		var it NotifyItem
		if err := rows.Scan(&it.MovieID, &it.Title, &it.URL, &it.Rewatch, &it.TMDBID, &it.Nickname); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkNotified flips the notified flag for an entry. The flag only ever goes
// from false to true, after a confirmed send.
func (s *Store) MarkNotified(ctx context.Context, movieID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE movies SET notified = 1 WHERE movie_id = ?;
	`, movieID)
	return err
}
