// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package format

import (
	"strings"
	"testing"

	"moviebob/internal/testutil"
)

func TestMessage(t *testing.T) {
	t.Parallel()

	base := Entry{
		Nickname: "Alice",
		Title:    "The Thing",
		URL:      "https://letterboxd.com/alice/film/the-thing/",
	}

	full := base
	full.Runtime = 109
	full.AvgRating = 4.23
	testutil.AssertEqual(t, Message(full),
		"🍿 Alice hat sich 'The Thing' mit 109 Minuten Länge und einer durchschnittlichen Letterboxd Wertung von 4.23/5 reingezogen: https://letterboxd.com/alice/film/the-thing/")

	runtimeOnly := base
	runtimeOnly.Runtime = 109
	testutil.AssertEqual(t, Message(runtimeOnly),
		"🍿 Alice hat sich 'The Thing' mit 109 Minuten Länge reingezogen: https://letterboxd.com/alice/film/the-thing/")

	ratingOnly := base
	ratingOnly.AvgRating = 4.23
	testutil.AssertEqual(t, Message(ratingOnly),
		"🍿 Alice hat sich 'The Thing' mit einer durchschnittlichen Letterboxd Wertung von 4.23/5 reingezogen: https://letterboxd.com/alice/film/the-thing/")

	testutil.AssertEqual(t, Message(base),
		"🍿 Alice hat sich 'The Thing': https://letterboxd.com/alice/film/the-thing/")
}

func TestMessageIcons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		shortfilm, rewatch bool
		icon               string
	}{
		{false, false, "🍿 "},
		{false, true, "🍿🔄 "},
		{true, false, "🍿🩳 "},
		{true, true, "🍿🩳🔄 "},
	}
	for _, tc := range cases {
		msg := Message(Entry{
			Nickname:  "Alice",
			Title:     "World of Tomorrow",
			URL:       "https://example.com",
			Runtime:   17,
			Shortfilm: tc.shortfilm,
			Rewatch:   tc.rewatch,
		})
		if !strings.HasPrefix(msg, tc.icon) {
			t.Errorf("shortfilm=%v rewatch=%v: got %q, want prefix %q", tc.shortfilm, tc.rewatch, msg, tc.icon)
		}
	}
}

func TestMessageShortfilmTag(t *testing.T) {
	t.Parallel()

	e := Entry{
		Nickname:  "Alice",
		Title:     "World of Tomorrow",
		URL:       "https://example.com",
		Runtime:   17,
		Shortfilm: true,
	}
	if !strings.Contains(Message(e), "(Shortfilm: 0,5 Pkt.)") {
		t.Errorf("shortfilm message misses the tag: %q", Message(e))
	}

	// The tag only appears when the runtime is known.
	e.Runtime = 0
	if strings.Contains(Message(e), "Shortfilm") {
		t.Errorf("message without runtime shouldn't carry the shortfilm tag: %q", Message(e))
	}
}

// Template selection is a pure function: the same input always renders the
// same message.
func TestMessageDeterministic(t *testing.T) {
	t.Parallel()

	e := Entry{
		Nickname:  "Alice",
		Title:     "The Thing",
		URL:       "https://example.com",
		Runtime:   109,
		AvgRating: 4.23,
		Rewatch:   true,
	}
	first := Message(e)
	for range 10 {
		testutil.AssertEqual(t, Message(e), first)
	}
}
