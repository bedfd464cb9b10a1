// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

// Package tmdb implements a minimal client for the TMDB v3 API.
package tmdb

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"moviebob/internal/request"
)

const apiURL = "https://api.themoviedb.org/3"

// Client is a TMDB API client authenticated with an API read access token.
type Client struct {
	token    string
	baseURL  string
	httpc    *http.Client
	scrubber *strings.Replacer
}

// New returns a Client using the given bearer token. A nil httpc uses
// [request.DefaultClient].
func New(token string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = request.DefaultClient
	}
	return &Client{
		token:    token,
		baseURL:  apiURL,
		httpc:    httpc,
		scrubber: strings.NewReplacer(token, "[EXPUNGED]"),
	}
}

// Movie is the subset of TMDB movie details moviebob cares about.
type Movie struct {
	ID          int64  `json:"id"`
	IMDBID      string `json:"imdb_id"`
	ReleaseDate string `json:"release_date"`
	Runtime     int    `json:"runtime"`
	Title       string `json:"title"`
}

// Validate issues an authenticated probe request, reporting whether the token
// is usable. Any failure here means every subsequent detail fetch would fail
// the same way.
func (c *Client) Validate(ctx context.Context) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        c.baseURL + "/authentication",
		Headers:    c.headers(),
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	})
	return err
}

// Movie fetches movie details by TMDB id.
func (c *Client) Movie(ctx context.Context, id int64) (Movie, error) {
	return request.Make[Movie](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        c.baseURL + "/movie/" + strconv.FormatInt(id, 10),
		Headers:    c.headers(),
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	})
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.token,
		"Accept":        "application/json",
	}
}
