// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

/*
Moviebob watches Letterboxd diaries and reports new watches to a Telegram
chat.

Each invocation runs one full cycle and exits: it polls every configured
user's RSS diary feed, stores new log entries in a local SQLite database,
enriches them with TMDB metadata and the average Letterboxd rating scraped
from the film page, sends one notification per new watch, and sends a monthly
and yearly digest when one is due. Run it from cron or a systemd timer;
re-running is always safe, delivery state is only recorded after a confirmed
send.

# Usage

	$ moviebob -chat-id <id> -token <bot token> -tmdb-token <token> -user username[:nickname] [-user ...]

Flags fall back to the CHAT_ID, TELEGRAM_TOKEN, TMDB_TOKEN, MOVIEBOB_DB and
LETTERBOXD_USERS (comma-separated) environment variables.
*/
package main

import (
	_ "embed"

	"moviebob/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
