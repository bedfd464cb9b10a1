// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package letterboxd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moviebob/internal/testutil"
)

func TestFilmPageURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		logURL  string
		rewatch bool
		want    string
	}{
		{"https://letterboxd.com/alice/film/the-thing/", false, "https://letterboxd.com/film/the-thing"},
		{"https://letterboxd.com/alice/film/the-thing/2/", true, "https://letterboxd.com/film/the-thing"},
		{"https://letterboxd.com/alice/film/world-of-tomorrow/", false, "https://letterboxd.com/film/world-of-tomorrow"},
	}
	for _, tc := range cases {
		got, err := FilmPageURL(tc.logURL, tc.rewatch)
		if err != nil {
			t.Fatalf("FilmPageURL(%q, %v): %v", tc.logURL, tc.rewatch, err)
		}
		testutil.AssertEqual(t, got, tc.want)
	}
}

func TestFilmPageURLNoSlug(t *testing.T) {
	t.Parallel()

	if _, err := FilmPageURL("https://letterboxd.com/", false); err == nil {
		t.Fatal("expected an error for a URL without a film slug")
	}
	if _, err := FilmPageURL("https://letterboxd.com/x/", true); err == nil {
		t.Fatal("expected an error for a URL without a film slug")
	}
}

const filmPage = `<!DOCTYPE html>
<html>
<head>
<meta name="twitter:data2" content="4.23 out of 5" />
</head>
<body data-tmdb-id="1091" data-tmdb-type="movie">
<h1>The Thing</h1>
</body>
</html>`

func TestScrapeFilm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Film pages are requested with browser-like headers.
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			http.Error(w, "bot detected", http.StatusForbidden)
			return
		}
		w.Write([]byte(filmPage))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil)
	page, err := c.ScrapeFilm(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, page, FilmPage{TMDBID: 1091, AvgRating: 4.23})
}

func TestScrapeFilmNoRating(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body data-tmdb-id="1091"></body></html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil)
	page, err := c.ScrapeFilm(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	// A page without a rating is fine, only the id is required.
	testutil.AssertEqual(t, page, FilmPage{TMDBID: 1091})
}

func TestScrapeFilmNoTMDBID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Some page</h1></body></html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil)
	if _, err := c.ScrapeFilm(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for a page without data-tmdb-id")
	}
}
