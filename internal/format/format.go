// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

// Package format renders per-movie notification messages.
package format

import (
	"fmt"
	"strconv"
)

// Entry describes one watch for message rendering. Runtime 0 means unknown,
// AvgRating 0 means no rating available; the template is a pure function of
// which of those are present plus the Shortfilm/Rewatch icon decoration.
type Entry struct {
	Nickname  string
	Title     string
	URL       string
	Runtime   int
	AvgRating float64
	Shortfilm bool
	Rewatch   bool
}

// Message renders the notification text for e.
func Message(e Entry) string {
	icon := "🍿"
	switch {
	case e.Shortfilm && e.Rewatch:
		icon = "🍿🩳🔄"
	case e.Shortfilm:
		icon = "🍿🩳"
	case e.Rewatch:
		icon = "🍿🔄"
	}

	var (
		hasRuntime = e.Runtime > 0
		hasRating  = e.AvgRating > 0
		avg        = strconv.FormatFloat(e.AvgRating, 'f', -1, 64)
	)

	switch {
	case e.Shortfilm && hasRuntime && hasRating:
		return fmt.Sprintf("%s %s hat sich '%s' mit %d Minuten Länge (Shortfilm: 0,5 Pkt.) und einer durchschnittlichen Letterboxd Wertung von %s/5 reingezogen: %s",
			icon, e.Nickname, e.Title, e.Runtime, avg, e.URL)
	case hasRuntime && hasRating:
		return fmt.Sprintf("%s %s hat sich '%s' mit %d Minuten Länge und einer durchschnittlichen Letterboxd Wertung von %s/5 reingezogen: %s",
			icon, e.Nickname, e.Title, e.Runtime, avg, e.URL)
	case e.Shortfilm && hasRuntime:
		return fmt.Sprintf("%s %s hat sich '%s' mit %d Minuten Länge (Shortfilm: 0,5 Pkt.) reingezogen: %s",
			icon, e.Nickname, e.Title, e.Runtime, e.URL)
	case hasRuntime:
		return fmt.Sprintf("%s %s hat sich '%s' mit %d Minuten Länge reingezogen: %s",
			icon, e.Nickname, e.Title, e.Runtime, e.URL)
	case hasRating:
		return fmt.Sprintf("%s %s hat sich '%s' mit einer durchschnittlichen Letterboxd Wertung von %s/5 reingezogen: %s",
			icon, e.Nickname, e.Title, avg, e.URL)
	default:
		return fmt.Sprintf("%s %s hat sich '%s': %s", icon, e.Nickname, e.Title, e.URL)
	}
}
