// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

// Package digest composes monthly and yearly summary messages from aggregate
// store rows. Rendering is pure: no I/O, same input gives the same message.
package digest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moviebob/internal/store"
)

// Monthly renders the monthly digest for the given month. It returns an
// empty string if there is nothing to report (no watches in that month).
func Monthly(year int, month time.Month, stats []store.WatchStats) string {
	if len(stats) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎬 Endlich ist es wieder so weit - Zeit für den monatlichen Filmrückblick! Die Stats für %02d-%d:\n", int(month), year)
	for i, ws := range stats {
		sb.WriteString("\n")
		sb.WriteString(rankLine(i, ws))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// rankLine renders one user's line of the watch-count ranking. The decoration
// depends on the rank only; ties keep the underlying query order.
func rankLine(rank int, ws store.WatchStats) string {
	switch rank {
	case 0:
		return fmt.Sprintf("- 🥇 Wuhu! Gute Arbeit! %s hat sich massive %d Filme reingedübelt, davon %d Rewatches und %d Shortfilms",
			ws.Nickname, ws.Watches, ws.Rewatches, ws.Shortfilms)
	case 1:
		return fmt.Sprintf("- 🥈 Zweiter Platz für %s! Hat sich ordentlich %d Filme einverleibt, davon %d Rewatches und %d Shortfilms",
			ws.Nickname, ws.Watches, ws.Rewatches, ws.Shortfilms)
	case 2:
		return fmt.Sprintf("- 🥉 Letztes Edelmetall geht an %s mit %d Filmen unterm Gürtel, davon %d Rewatches und %d Shortfilms",
			ws.Nickname, ws.Watches, ws.Rewatches, ws.Shortfilms)
	case 3:
		return fmt.Sprintf("- 🍄 Knapp am Podium vorbei! %s hat sich trotzdem %d Filme reingedübelt, davon %d Rewatches und %d Shortfilms",
			ws.Nickname, ws.Watches, ws.Rewatches, ws.Shortfilms)
	case 4:
		return fmt.Sprintf("- 🥑 Schon wenig, aber immer noch besser als Letzter! %s hat sich %d Filme gegönnt, davon %d Rewatches und %d Shortfilms",
			ws.Nickname, ws.Watches, ws.Rewatches, ws.Shortfilms)
	default:
		return fmt.Sprintf("- 🍑 %s hatte wohl Besseres zu tun, und schaffte es nur auf %d Film(e), davon %d Rewatche(s) und %d Shortfilms",
			ws.Nickname, ws.Watches, ws.Rewatches, ws.Shortfilms)
	}
}

// YearlyData carries the aggregates the yearly digest is rendered from.
type YearlyData struct {
	Watches     []store.WatchStats
	Runtimes    []store.RuntimeStats
	Best        store.RatedMovie
	Worst       store.RatedMovie
	HasExtremes bool
	Distinct    int // distinct movies watched group-wide
}

// Yearly renders the yearly digest: three independently rendered sections
// (watch-count ranking, runtime ranking, rating extremes) concatenated. It
// returns an empty string if there is nothing to report.
func Yearly(year int, d YearlyData) string {
	if len(d.Watches) == 0 {
		return ""
	}

	var sections []string

	var watch strings.Builder
	fmt.Fprintf(&watch, "🎆 Frohes Neues! Der große Jahresrückblick für %d - insgesamt hat sich die Gruppe %d verschiedene Filme reingezogen:\n", year, d.Distinct)
	for i, ws := range d.Watches {
		watch.WriteString("\n")
		watch.WriteString(rankLine(i, ws))
		watch.WriteString("\n")
	}
	sections = append(sections, strings.TrimRight(watch.String(), "\n"))

	if len(d.Runtimes) > 0 {
		var rt strings.Builder
		rt.WriteString("⏱ So lange saß jeder vor der Leinwand:\n")
		for _, rs := range d.Runtimes {
			fmt.Fprintf(&rt, "\n- %s hat %d Stunden und %d Minuten abgesessen", rs.Nickname, rs.Minutes/60, rs.Minutes%60)
			if rs.AvgRating > 0 {
				fmt.Fprintf(&rt, " (durchschnittliche Letterboxd Wertung der Filme: %.2f/5)", rs.AvgRating)
			}
			rt.WriteString("\n")
		}
		sections = append(sections, strings.TrimRight(rt.String(), "\n"))
	}

	if d.HasExtremes {
		extremes := fmt.Sprintf("🏆 Bester Film des Jahres: '%s' mit %s/5 - gesehen von %s\n\n💩 Schlechtester Film des Jahres: '%s' mit %s/5 - gesehen von %s",
			d.Best.Title, formatAvg(d.Best.AvgRating), d.Best.Nicknames,
			d.Worst.Title, formatAvg(d.Worst.AvgRating), d.Worst.Nicknames)
		sections = append(sections, extremes)
	}

	return strings.Join(sections, "\n\n")
}

// MonthPeriod returns the digest marker period for a month, e.g. "2024-05".
func MonthPeriod(year int, month time.Month) string {
	return fmt.Sprintf("%d-%02d", year, int(month))
}

// YearPeriod returns the digest marker period for a year, e.g. "2024".
func YearPeriod(year int) string {
	return strconv.Itoa(year)
}

func formatAvg(avg float64) string {
	return strconv.FormatFloat(avg, 'f', -1, 64)
}
