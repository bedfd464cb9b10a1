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

// Digest marker kinds.
const (
	DigestMonth = "month"
	DigestYear  = "year"
)

// DigestSent reports whether the digest for (kind, period) was already sent.
// The marker row's existence is the guard; it is inserted only after a
// confirmed send.
func (s *Store) DigestSent(ctx context.Context, kind, period string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT digest_id FROM digests WHERE kind = ? AND period = ?;
	`, kind, period).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkDigestSent records that the digest for (kind, period) was delivered.
func (s *Store) MarkDigestSent(ctx context.Context, kind, period string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO digests (kind, period) VALUES (?, ?)
		ON CONFLICT (kind, period) DO NOTHING;
	`, kind, period)
	return err
}

// WatchStats are one user's aggregated counts over a date range.
type WatchStats struct {
	Nickname   string
	Watches    int
	Rewatches  int
	Shortfilms int
}

// WatchStatsRange returns per-user watch, rewatch and short-film counts over
// [from, to), ordered by watch count descending. Ties keep query order.
func (s *Store) WatchStatsRange(ctx context.Context, from, to time.Time) ([]WatchStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.nickname,
			COUNT(m.movie_id),
			COALESCE(SUM(m.rewatch), 0),
			COALESCE(SUM(CASE WHEN t.shortfilm = 1 THEN 1 ELSE 0 END), 0)
		FROM movies m
		JOIN users u ON u.user_id = m.user_id
		LEFT JOIN tmdb t ON t.tmdb_id = m.tmdb_id
		WHERE m.watched_at >= ? AND m.watched_at < ?
		GROUP BY m.user_id
		ORDER BY COUNT(m.movie_id) DESC;
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []WatchStats
	for rows.Next() {
		var ws WatchStats
		if err := rows.Scan(&ws.Nickname, &ws.Watches, &ws.Rewatches, &ws.Shortfilms); err != nil {
			return nil, err
		}
		stats = append(stats, ws)
	}
	return stats, rows.Err()
}

// RuntimeStats are one user's total watched runtime and average Letterboxd
// rating over a date range.
type RuntimeStats struct {
	Nickname  string
	Minutes   int
	AvgRating float64
}

// RuntimeStatsRange returns per-user total runtime (minutes) and average
// Letterboxd rating over [from, to), ordered by runtime descending. Entries
// without resolved metadata contribute nothing, unrated movies are excluded
// from the average.
func (s *Store) RuntimeStatsRange(ctx context.Context, from, to time.Time) ([]RuntimeStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.nickname,
			COALESCE(SUM(t.runtime), 0),
			COALESCE(AVG(CASE WHEN t.letterboxd_avg > 0 THEN t.letterboxd_avg END), 0)
		FROM movies m
		JOIN users u ON u.user_id = m.user_id
		LEFT JOIN tmdb t ON t.tmdb_id = m.tmdb_id
		WHERE m.watched_at >= ? AND m.watched_at < ?
		GROUP BY m.user_id
		ORDER BY SUM(t.runtime) DESC;
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []RuntimeStats
	for rows.Next() {
		var rs RuntimeStats
		if err := rows.Scan(&rs.Nickname, &rs.Minutes, &rs.AvgRating); err != nil {
			return nil, err
		}
		stats = append(stats, rs)
	}
	return stats, rows.Err()
}

// RatedMovie is a movie with its Letterboxd average rating and every user who
// logged it in the queried range.
type RatedMovie struct {
	Title     string
	AvgRating float64
	Nicknames string // comma-separated
}

// RatingExtremes returns the best- and worst-rated movie over [from, to),
// considering only movies with a known rating. ok is false if there are none.
func (s *Store) RatingExtremes(ctx context.Context, from, to time.Time) (best, worst RatedMovie, ok bool, err error) {
	const q = `
		SELECT t.title, t.letterboxd_avg, GROUP_CONCAT(DISTINCT u.nickname)
		FROM movies m
		JOIN users u ON u.user_id = m.user_id
		JOIN tmdb t ON t.tmdb_id = m.tmdb_id
		WHERE m.watched_at >= ? AND m.watched_at < ? AND t.letterboxd_avg > 0
		GROUP BY t.tmdb_id
		ORDER BY t.letterboxd_avg `
	for _, ext := range []struct {
		order string
		dst   *RatedMovie
	}{
		{"DESC LIMIT 1;", &best},
		{"ASC LIMIT 1;", &worst},
	} {
		err = s.db.QueryRowContext(ctx, q+ext.order, formatTime(from), formatTime(to)).
			Scan(&ext.dst.Title, &ext.dst.AvgRating, &ext.dst.Nicknames)
		if errors.Is(err, sql.ErrNoRows) {
			return RatedMovie{}, RatedMovie{}, false, nil
		}
		if err != nil {
			return RatedMovie{}, RatedMovie{}, false, err
		}
	}
	return best, worst, true, nil
}

// DistinctMovieCount returns the number of distinct movies watched group-wide
// over [from, to). Movies are identified by TMDB id when resolved, falling
// back to the title.
func (s *Store) DistinctMovieCount(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT CASE
			WHEN tmdb_id IS NOT NULL AND tmdb_id != 0 THEN 'id:' || tmdb_id
			ELSE 'title:' || title
		END)
		FROM movies
		WHERE watched_at >= ? AND watched_at < ?;
	`, formatTime(from), formatTime(to)).Scan(&n)
	return n, err
}
