// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// MovieMeta is cached TMDB metadata for a movie, shared by all entries that
// logged it.
type MovieMeta struct {
	TMDBID          int64
	IMDBID          string
	ReleaseDate     string
	Runtime         int // minutes, 0 means unknown
	Shortfilm       bool
	LetterboxdAvg   float64 // 0 means no rating available
	LetterboxdAvgAt time.Time
	Title           string
}

// UpsertMovieMeta creates the metadata row for tmdbID if it doesn't exist and
// unconditionally stores the scraped average rating with its fetch time,
// refreshing the staleness clock even when the value is unchanged.
func (s *Store) UpsertMovieMeta(ctx context.Context, tmdbID int64, title string, avg float64, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tmdb (tmdb_id, title) VALUES (?, ?)
		ON CONFLICT (tmdb_id) DO NOTHING;
	`, tmdbID, title); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tmdb SET letterboxd_avg = ?, letterboxd_avg_at = ? WHERE tmdb_id = ?;
	`, avg, formatTime(fetchedAt), tmdbID); err != nil {
		return err
	}

	return tx.Commit()
}

// MetaByTMDBID looks up the metadata row for tmdbID. The second return value
// reports whether a row exists.
func (s *Store) MetaByTMDBID(ctx context.Context, tmdbID int64) (MovieMeta, bool, error) {
	m, err := scanMeta(s.db.QueryRowContext(ctx, `
		SELECT tmdb_id, COALESCE(imdb_id, ''), COALESCE(release_date, ''), COALESCE(runtime, 0),
			shortfilm, letterboxd_avg, letterboxd_avg_at, title
		FROM tmdb WHERE tmdb_id = ?;
	`, tmdbID))
	if errors.Is(err, sql.ErrNoRows) {
		return MovieMeta{}, false, nil
	}
	if err != nil {
		return MovieMeta{}, false, err
	}
	return m, true, nil
}

// MetaMissingDetails returns metadata rows that still lack the release date,
// runtime or IMDB cross-reference from the TMDB API.
func (s *Store) MetaMissingDetails(ctx context.Context) ([]MovieMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tmdb_id, COALESCE(imdb_id, ''), COALESCE(release_date, ''), COALESCE(runtime, 0),
			shortfilm, letterboxd_avg, letterboxd_avg_at, title
		FROM tmdb
		WHERE imdb_id IS NULL OR release_date IS NULL OR runtime IS NULL
		ORDER BY tmdb_id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []MovieMeta
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// SetMovieDetails stores the details fetched from the TMDB API.
func (s *Store) SetMovieDetails(ctx context.Context, tmdbID int64, imdbID, releaseDate string, runtime int, shortfilm bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tmdb SET imdb_id = ?, release_date = ?, runtime = ?, shortfilm = ?
		WHERE tmdb_id = ?;
	`, imdbID, releaseDate, runtime, shortfilm, tmdbID)
	return err
}

// StaleRating is a metadata row whose average rating is due for a refresh,
// joined with one diary entry to re-derive the film page URL from.
type StaleRating struct {
	TMDBID  int64
	URL     string // log URL of one entry for this movie
	Rewatch bool
}

// StaleRatings returns all metadata rows whose average rating was last
// fetched before olderThan.
func (s *Store) StaleRatings(ctx context.Context, olderThan time.Time) ([]StaleRating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tmdb_id, m.url, m.rewatch
		FROM tmdb t
		JOIN movies m ON m.tmdb_id = t.tmdb_id
		WHERE t.letterboxd_avg_at < ?
		GROUP BY t.tmdb_id;
	`, formatTime(olderThan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []StaleRating
	for rows.Next() {
		var sr StaleRating
		if err := rows.Scan(&sr.TMDBID, &sr.URL, &sr.Rewatch); err != nil {
			return nil, err
		}
		stale = append(stale, sr)
	}
	return stale, rows.Err()
}

// UpdateAvgRating stores a freshly scraped average rating, unconditionally
// bumping the fetch time.
func (s *Store) UpdateAvgRating(ctx context.Context, tmdbID int64, avg float64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tmdb SET letterboxd_avg = ?, letterboxd_avg_at = ? WHERE tmdb_id = ?;
	`, avg, formatTime(at), tmdbID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(row scanner) (MovieMeta, error) {
	var (
		m     MovieMeta
		avgAt string
	)
	if err := row.Scan(&m.TMDBID, &m.IMDBID, &m.ReleaseDate, &m.Runtime, &m.Shortfilm, &m.LetterboxdAvg, &avgAt, &m.Title); err != nil {
		return MovieMeta{}, err
	}
	m.LetterboxdAvgAt = parseTime(avgAt)
	return m, nil
}
