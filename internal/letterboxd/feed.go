// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

// Package letterboxd reads Letterboxd diary feeds and film pages.
package letterboxd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moviebob/internal/request"
	"moviebob/internal/version"

	"github.com/mmcdole/gofeed"
)

// LogEntry is one diary entry parsed from a user's RSS feed.
type LogEntry struct {
	LetterboxdID string
	URL          string
	Title        string
	Year         int
	Rating       float64 // 0 means unrated
	Rewatch      bool
	WatchedAt    time.Time
}

// Client fetches and parses Letterboxd feeds and film pages.
type Client struct {
	httpc *http.Client
	fp    *gofeed.Parser
	slog  *slog.Logger
}

// NewClient returns a Client. A nil httpc uses [request.DefaultClient].
func NewClient(httpc *http.Client, log *slog.Logger) *Client {
	if httpc == nil {
		httpc = request.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpc: httpc,
		fp:    gofeed.NewParser(),
		slog:  log,
	}
}

// FeedURL returns the diary feed URL for a Letterboxd username.
func FeedURL(username string) string {
	return "https://letterboxd.com/" + username + "/rss/"
}

// Fetch fetches and parses one user's diary feed. Entries that cannot be
// parsed as a single movie log (list items, malformed fields) are logged and
// skipped; only a feed-level failure is returned as an error.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]LogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: want 200, got %d", feedURL, res.StatusCode)
	}

	feed, err := c.fp.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", feedURL, err)
	}

	var entries []LogEntry
	for _, item := range feed.Items {
		entry, err := parseItem(item)
		if err != nil {
			c.slog.Debug("skipping feed item", "link", item.Link, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var errListEntry = fmt.Errorf("list entry, not a movie log")

func parseItem(item *gofeed.Item) (LogEntry, error) {
	// Lists show up in the same feed but can't be parsed as a movie.
	if strings.Contains(item.Link, "/list/") {
		return LogEntry{}, errListEntry
	}

	title := ext(item, "filmTitle")
	if title == "" {
		return LogEntry{}, fmt.Errorf("missing film title")
	}
	year, err := strconv.Atoi(ext(item, "filmYear"))
	if err != nil {
		return LogEntry{}, fmt.Errorf("parsing film year: %w", err)
	}
	if item.PublishedParsed == nil {
		return LogEntry{}, fmt.Errorf("missing published time")
	}

	// An absent memberRating means the user didn't rate this watch.
	// Letterboxd disallows rating a film 0, so 0 is a safe sentinel.
	var rating float64
	if r := ext(item, "memberRating"); r != "" {
		rating, err = strconv.ParseFloat(r, 64)
		if err != nil {
			return LogEntry{}, fmt.Errorf("parsing member rating: %w", err)
		}
	}

	return LogEntry{
		LetterboxdID: item.GUID,
		URL:          item.Link,
		Title:        title,
		Year:         year,
		Rating:       rating,
		Rewatch:      ext(item, "rewatch") == "Yes",
		WatchedAt:    *item.PublishedParsed,
	}, nil
}

// ext returns the value of a letterboxd namespace extension element.
func ext(item *gofeed.Item, name string) string {
	vals, ok := item.Extensions["letterboxd"][name]
	if !ok || len(vals) == 0 {
		return ""
	}
	return vals[0].Value
}
