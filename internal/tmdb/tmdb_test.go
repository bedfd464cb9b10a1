// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moviebob/internal/request"
	"moviebob/internal/testutil"
)

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	return New("test-token", &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			return w.Result(), nil
		}),
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.themoviedb.org/3/authentication", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("Authorization"), "Bearer test-token")
		w.Write([]byte(`{"success":true}`))
	})
	if err := testClient(t, mux).Validate(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestValidateBadToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.themoviedb.org/3/authentication", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false,"status_code":7}`, http.StatusUnauthorized)
	})
	err := testClient(t, mux).Validate(context.Background())
	if err == nil {
		t.Fatal("expected an error for an invalid token")
	}
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected a StatusError, got %v", err)
	}
	testutil.AssertEqual(t, statusErr.StatusCode, http.StatusUnauthorized)
}

func TestMovie(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.themoviedb.org/3/movie/1091", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1091,"imdb_id":"tt0084787","release_date":"1982-06-25","runtime":109,"title":"The Thing"}`))
	})
	movie, err := testClient(t, mux).Movie(context.Background(), 1091)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, movie, Movie{
		ID:          1091,
		IMDBID:      "tt0084787",
		ReleaseDate: "1982-06-25",
		Runtime:     109,
		Title:       "The Thing",
	})
}

// The token never leaks into error messages.
func TestErrorScrubbing(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.themoviedb.org/3/authentication", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token: test-token", http.StatusUnauthorized)
	})
	err := testClient(t, mux).Validate(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if strings.Contains(err.Error(), "test-token") {
		t.Fatalf("token leaked into error message: %v", err)
	}
}
