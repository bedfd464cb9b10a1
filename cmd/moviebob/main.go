// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"moviebob/internal/cli"
	"moviebob/internal/digest"
	"moviebob/internal/format"
	"moviebob/internal/letterboxd"
	"moviebob/internal/logger"
	"moviebob/internal/request"
	"moviebob/internal/store"
	"moviebob/internal/telegram"
	"moviebob/internal/tmdb"
)

func main() { cli.Main(new(bot)) }

// userList is a repeatable -user flag holding "username[:nickname]" specs.
type userList []string

func (u *userList) String() string { return strings.Join(*u, ",") }

func (u *userList) Set(v string) error {
	*u = append(*u, v)
	return nil
}

func (b *bot) Flags(fs *flag.FlagSet) {
	fs.StringVar(&b.chatID, "chat-id", "", "Telegram chat ID to report to.")
	fs.StringVar(&b.tgToken, "token", "", "Telegram Bot API token.")
	fs.StringVar(&b.tmdbToken, "tmdb-token", "", "TMDB API read access token.")
	fs.Var(&b.userSpecs, "user", "Letterboxd username to watch, repeatable. A notification nickname can be appended with a colon, e.g. 'username:nickname'.")
	fs.StringVar(&b.dbPath, "db", "", "Location of the SQLite database file (default 'moviebob.db').")
	fs.DurationVar(&b.staleAfter, "stale", 30*24*time.Hour, "Re-scrape a movie's average rating when the cached value is older than this.")
	fs.BoolVar(&b.dry, "dry", false, "Enable dry-run mode: log actions, but don't send messages or record delivery state.")
	fs.BoolVar(&b.verbose, "v", false, "Enable debug logging.")
}

type bot struct {
	init sync.Once

	// configuration
	chatID     string
	tgToken    string
	tmdbToken  string
	userSpecs  userList
	dbPath     string
	staleAfter time.Duration
	dry        bool
	verbose    bool
	// now acts as time.Now, but can be mocked for testing.
	now func() time.Time

	// initialized by doInit
	httpc     *http.Client
	logf      logger.Logf
	slog      *slog.Logger
	slogLevel *slog.LevelVar
	lb        *letterboxd.Client
	tmdb      *tmdb.Client
	sender    *telegram.Sender

	// opened by Run
	store *store.Store
}

func (b *bot) doInit(ctx context.Context) {
	env := cli.GetEnv(ctx)
	b.logf = log.New(env.Stderr, "", 0).Printf
	if b.now == nil {
		b.now = time.Now
	}
	if b.httpc == nil {
		b.httpc = request.DefaultClient
	}

	l := logger.New(env.Stderr)
	b.slog = l.Logger
	b.slogLevel = l.Level

	if b.lb == nil {
		b.lb = letterboxd.NewClient(b.httpc, b.slog)
	}
	if b.tmdb == nil {
		b.tmdb = tmdb.New(b.tmdbToken, b.httpc)
	}
	if b.sender == nil {
		b.sender = telegram.New(telegram.Config{
			ChatID:     b.chatID,
			Token:      b.tgToken,
			HTTPClient: b.httpc,
			Logger:     b.slog,
		})
	}
}

func (b *bot) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	// Load configuration from environment variables.
	b.chatID = cmp.Or(b.chatID, env.Getenv("CHAT_ID"))
	b.tgToken = cmp.Or(b.tgToken, env.Getenv("TELEGRAM_TOKEN"))
	b.tmdbToken = cmp.Or(b.tmdbToken, env.Getenv("TMDB_TOKEN"))
	b.dbPath = cmp.Or(b.dbPath, env.Getenv("MOVIEBOB_DB"), "moviebob.db")
	if len(b.userSpecs) == 0 {
		if users := env.Getenv("LETTERBOXD_USERS"); users != "" {
			b.userSpecs = strings.Split(users, ",")
		}
	}

	switch {
	case b.chatID == "":
		return fmt.Errorf("%w: missing Telegram chat ID (-chat-id or CHAT_ID)", cli.ErrInvalidArgs)
	case b.tgToken == "":
		return fmt.Errorf("%w: missing Telegram bot token (-token or TELEGRAM_TOKEN)", cli.ErrInvalidArgs)
	case b.tmdbToken == "":
		return fmt.Errorf("%w: missing TMDB token (-tmdb-token or TMDB_TOKEN)", cli.ErrInvalidArgs)
	case len(b.userSpecs) == 0:
		return fmt.Errorf("%w: no Letterboxd users to watch (-user or LETTERBOXD_USERS)", cli.ErrInvalidArgs)
	}

	b.init.Do(func() { b.doInit(ctx) })

	if b.verbose || b.dry {
		b.slogLevel.Set(slog.LevelDebug)
	}

	db, err := store.Open(ctx, b.dbPath)
	if err != nil {
		return fmt.Errorf("opening database %q: %w", b.dbPath, err)
	}
	defer db.Close()
	b.store = db

	users, err := b.setupUsers(ctx)
	if err != nil {
		return err
	}

	b.ingest(ctx, users)
	if err := b.enrich(ctx); err != nil {
		return err
	}
	b.notify(ctx)
	if err := b.monthlyDigest(ctx); err != nil {
		b.slog.Warn("monthly digest failed", "error", err)
	}
	if err := b.yearlyDigest(ctx); err != nil {
		b.slog.Warn("yearly digest failed", "error", err)
	}

	return nil
}

// setupUsers resolves each "username[:nickname]" spec to a user row, creating
// rows as needed. A malformed spec is a configuration error and aborts the
// run.
func (b *bot) setupUsers(ctx context.Context) ([]store.User, error) {
	users := make([]store.User, 0, len(b.userSpecs))
	for _, spec := range b.userSpecs {
		parts := strings.Split(strings.TrimSpace(spec), ":")
		var username, nickname string
		switch len(parts) {
		case 1:
			username = parts[0]
		case 2:
			username, nickname = parts[0], parts[1]
		default:
			return nil, fmt.Errorf("%w: can't parse user spec %q, need 'username' or 'username:nickname'", cli.ErrInvalidArgs, spec)
		}

		user, err := b.store.CreateUser(ctx, username, nickname, letterboxd.FeedURL(username))
		if err != nil {
			return nil, fmt.Errorf("creating user %q: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// ingest fetches every user's diary feed and stores new entries. One user's
// feed failing is logged and skipped; it doesn't abort the other users.
func (b *bot) ingest(ctx context.Context, users []store.User) {
	for _, user := range users {
		b.slog.Debug("fetching diary feed", "user", user.Username)
		entries, err := b.lb.Fetch(ctx, user.FeedURL)
		if err != nil {
			b.slog.Warn("fetching feed failed, skipping user", "user", user.Username, "error", err)
			continue
		}
		for _, entry := range entries {
			id, err := b.store.CreateEntry(ctx, store.Entry{
				LetterboxdID: entry.LetterboxdID,
				URL:          entry.URL,
				Title:        entry.Title,
				Year:         entry.Year,
				Rating:       entry.Rating,
				Rewatch:      entry.Rewatch,
				WatchedAt:    entry.WatchedAt,
				UserID:       user.ID,
			})
			if err != nil {
				b.slog.Error("storing entry failed", "user", user.Username, "title", entry.Title, "error", err)
				continue
			}
			b.slog.Debug("stored entry", "movie_id", id, "title", entry.Title)
		}
	}
}

// shortfilmCutoff is the Academy definition of a short film: 40 minutes or
// less.
const shortfilmCutoff = 40

// enrich runs the three enrichment passes: TMDB id resolution via film page
// scraping, detail fetching from the TMDB API, and refreshing stale average
// ratings. Individual records failing are logged and left pending for the
// next run; an invalid TMDB token aborts the whole run.
func (b *bot) enrich(ctx context.Context) error {
	// Pass 1: resolve entries to TMDB ids by scraping their film pages.
	pending, err := b.store.EntriesMissingTMDBID(ctx)
	if err != nil {
		return err
	}
	for _, entry := range pending {
		page, err := b.scrapeFilm(ctx, entry.URL, entry.Rewatch)
		if err != nil {
			b.slog.Warn("resolving entry failed, leaving pending", "title", entry.Title, "error", err)
			continue
		}
		if err := b.store.SetEntryTMDBID(ctx, entry.ID, page.TMDBID); err != nil {
			b.slog.Error("storing TMDB id failed", "title", entry.Title, "error", err)
			continue
		}
		if err := b.store.UpsertMovieMeta(ctx, page.TMDBID, entry.Title, page.AvgRating, b.now()); err != nil {
			b.slog.Error("storing movie metadata failed", "title", entry.Title, "error", err)
		}
	}

	// All detail fetches share the same token; if the probe fails, so would
	// every one of them.
	if err := b.tmdb.Validate(ctx); err != nil {
		return fmt.Errorf("TMDB token validation failed: %w", err)
	}

	// Pass 2: fetch details for metadata rows that lack them.
	missing, err := b.store.MetaMissingDetails(ctx)
	if err != nil {
		return err
	}
	for _, meta := range missing {
		movie, err := b.tmdb.Movie(ctx, meta.TMDBID)
		if err != nil {
			b.slog.Warn("fetching movie details failed", "tmdb_id", meta.TMDBID, "error", err)
			continue
		}
		shortfilm := movie.Runtime > 0 && movie.Runtime <= shortfilmCutoff
		if err := b.store.SetMovieDetails(ctx, meta.TMDBID, movie.IMDBID, movie.ReleaseDate, movie.Runtime, shortfilm); err != nil {
			b.slog.Error("storing movie details failed", "tmdb_id", meta.TMDBID, "error", err)
		}
	}

	// Pass 3: re-scrape average ratings older than the staleness window.
	stale, err := b.store.StaleRatings(ctx, b.now().Add(-b.staleAfter))
	if err != nil {
		return err
	}
	for _, sr := range stale {
		page, err := b.scrapeFilm(ctx, sr.URL, sr.Rewatch)
		if err != nil {
			b.slog.Warn("refreshing average rating failed", "tmdb_id", sr.TMDBID, "error", err)
			continue
		}
		if err := b.store.UpdateAvgRating(ctx, sr.TMDBID, page.AvgRating, b.now()); err != nil {
			b.slog.Error("storing average rating failed", "tmdb_id", sr.TMDBID, "error", err)
		}
	}

	return nil
}

func (b *bot) scrapeFilm(ctx context.Context, logURL string, rewatch bool) (letterboxd.FilmPage, error) {
	pageURL, err := letterboxd.FilmPageURL(logURL, rewatch)
	if err != nil {
		return letterboxd.FilmPage{}, err
	}
	return b.lb.ScrapeFilm(ctx, pageURL)
}

// notify sends one message per un-notified entry, flipping the notified flag
// only after a confirmed send. A dropped message stays un-notified and is
// naturally retried on the next run.
func (b *bot) notify(ctx context.Context) {
	items, err := b.store.UnnotifiedEntries(ctx)
	if err != nil {
		b.slog.Error("listing un-notified entries failed", "error", err)
		return
	}
	for _, item := range items {
		entry := format.Entry{
			Nickname: item.Nickname,
			Title:    item.Title,
			URL:      item.URL,
			Rewatch:  item.Rewatch,
		}
		if item.TMDBID != 0 {
			meta, ok, err := b.store.MetaByTMDBID(ctx, item.TMDBID)
			if err != nil {
				b.slog.Error("looking up movie metadata failed", "title", item.Title, "error", err)
				continue
			}
			if ok {
				entry.Runtime = meta.Runtime
				entry.AvgRating = meta.LetterboxdAvg
				entry.Shortfilm = meta.Shortfilm
			}
		}

		msg := format.Message(entry)
		if b.dry {
			b.slog.Info("dry run, would send", "message", msg)
			continue
		}
		if err := b.sender.Send(ctx, msg); err != nil {
			b.slog.Warn("sending notification failed, will retry next run", "title", item.Title, "error", err)
			continue
		}
		if err := b.store.MarkNotified(ctx, item.MovieID); err != nil {
			b.slog.Error("marking entry notified failed", "title", item.Title, "error", err)
		}
	}
}

// monthlyDigest sends the digest for one calendar month ago if it wasn't
// sent yet. The marker row is inserted only after a confirmed send.
func (b *bot) monthlyDigest(ctx context.Context) error {
	thisMonth := startOfMonth(b.now())
	target := thisMonth.AddDate(0, -1, 0)
	period := digest.MonthPeriod(target.Year(), target.Month())

	sent, err := b.store.DigestSent(ctx, store.DigestMonth, period)
	if err != nil || sent {
		return err
	}

	stats, err := b.store.WatchStatsRange(ctx, target, thisMonth)
	if err != nil {
		return err
	}
	msg := digest.Monthly(target.Year(), target.Month(), stats)
	if msg == "" {
		b.slog.Debug("no watches last month, skipping monthly digest", "period", period)
		return nil
	}

	return b.sendDigest(ctx, store.DigestMonth, period, msg)
}

// yearlyDigest sends the digest for the previous calendar year if it wasn't
// sent yet.
func (b *bot) yearlyDigest(ctx context.Context) error {
	year := b.now().Year() - 1
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	period := digest.YearPeriod(year)

	sent, err := b.store.DigestSent(ctx, store.DigestYear, period)
	if err != nil || sent {
		return err
	}

	var data digest.YearlyData
	if data.Watches, err = b.store.WatchStatsRange(ctx, from, to); err != nil {
		return err
	}
	if data.Runtimes, err = b.store.RuntimeStatsRange(ctx, from, to); err != nil {
		return err
	}
	if data.Best, data.Worst, data.HasExtremes, err = b.store.RatingExtremes(ctx, from, to); err != nil {
		return err
	}
	if data.Distinct, err = b.store.DistinctMovieCount(ctx, from, to); err != nil {
		return err
	}

	msg := digest.Yearly(year, data)
	if msg == "" {
		b.slog.Debug("no watches last year, skipping yearly digest", "period", period)
		return nil
	}

	return b.sendDigest(ctx, store.DigestYear, period, msg)
}

func (b *bot) sendDigest(ctx context.Context, kind, period, msg string) error {
	if b.dry {
		b.slog.Info("dry run, would send digest", "kind", kind, "period", period, "message", msg)
		return nil
	}
	if err := b.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending %s digest for %s: %w", kind, period, err)
	}
	return b.store.MarkDigestSent(ctx, kind, period)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
