// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package letterboxd

import (
	"context"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FilmPage is the data scraped from a film's detail page.
type FilmPage struct {
	TMDBID    int64
	AvgRating float64 // 0 when the page carries no rating
}

// FilmPageURL derives the film detail page URL from a diary log URL. Rewatch
// log URLs carry a trailing view-counter segment which is dropped first; the
// film slug is then the last path segment:
//
//	https://letterboxd.com/alice/film/foo/2/ (rewatch) → https://letterboxd.com/film/foo
//	https://letterboxd.com/alice/film/foo/             → https://letterboxd.com/film/foo
func FilmPageURL(logURL string, rewatch bool) (string, error) {
	u, err := urlpkg.Parse(logURL)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if rewatch {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("no film slug in %q", logURL)
	}
	slug := segments[len(segments)-1]
	if slug == "" {
		return "", fmt.Errorf("no film slug in %q", logURL)
	}
	return u.Scheme + "://" + u.Host + "/film/" + slug, nil
}

// Letterboxd serves a stripped page to obvious bots, so film pages are
// fetched with browser-like headers.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
	"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
}

// ScrapeFilm fetches a film detail page and extracts the TMDB id embedded on
// the page body plus the average Letterboxd rating from the twitter:data2
// meta tag. A missing or malformed TMDB id is an error (the caller retries on
// the next run); a missing rating is not.
func (c *Client) ScrapeFilm(ctx context.Context, pageURL string) (FilmPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return FilmPage{}, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return FilmPage{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return FilmPage{}, fmt.Errorf("fetching %q: want 200, got %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return FilmPage{}, fmt.Errorf("parsing %q: %w", pageURL, err)
	}

	rawID, ok := doc.Find("body").Attr("data-tmdb-id")
	if !ok {
		return FilmPage{}, fmt.Errorf("no data-tmdb-id attribute on %q", pageURL)
	}
	tmdbID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return FilmPage{}, fmt.Errorf("parsing data-tmdb-id %q: %w", rawID, err)
	}

	page := FilmPage{TMDBID: tmdbID}

	// The rating lives in a meta tag as "3.85 out of 5". Some films have no
	// rating yet; that's not an error.
	if content, ok := doc.Find(`meta[name="twitter:data2"]`).Attr("content"); ok {
		fields := strings.Fields(content)
		if len(fields) > 0 {
			if avg, err := strconv.ParseFloat(fields[0], 64); err == nil {
				page.AvgRating = avg
			}
		}
	}

	return page, nil
}
