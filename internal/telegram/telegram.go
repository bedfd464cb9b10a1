// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

// Package telegram implements message delivery over the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"moviebob/internal/request"
)

const (
	tgAPI = "https://api.telegram.org"

	sendAttempts = 3                      // total tries per message
	retryDelay   = 3 * time.Second        // after timeouts and unknown errors
	successPause = 300 * time.Millisecond // courtesy pause, helps with timeouts
)

// Config configures a Telegram sender.
type Config struct {
	ChatID     string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Sender sends messages to a fixed chat via the Telegram Bot API, retrying a
// bounded number of times. It persists nothing: a message either gets
// delivered (nil error) or dropped for this run, and the caller only records
// delivery state on success.
type Sender struct {
	chatID string
	token  string
	httpc  *http.Client
	slog   *slog.Logger

	makeRequest func(context.Context, string, any) error
	sleep       func(context.Context, time.Duration) bool
}

// New returns a Telegram sender configured for a specific chat.
func New(cfg Config) *Sender {
	s := &Sender{
		chatID: cfg.ChatID,
		token:  cfg.Token,
		httpc:  cfg.HTTPClient,
		slog:   cfg.Logger,
	}
	if s.httpc == nil {
		s.httpc = request.DefaultClient
	}
	if s.slog == nil {
		s.slog = slog.Default()
	}
	s.makeRequest = s.makeTelegramRequest
	s.sleep = sleep
	return s
}

type message struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
}

// Send delivers text to the configured chat. It tries at most three times:
// timeouts and unknown errors wait a fixed delay, an explicit rate limit
// waits the server-specified duration. The error of the last attempt is
// returned after the attempts are exhausted, so the caller can leave its
// delivery marker unset and retry on the next run.
func (s *Sender) Send(ctx context.Context, text string) error {
	msg := &message{ChatID: s.chatID, Text: text}

	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		s.slog.Debug("sending message", "attempt", attempt, "chat_id", s.chatID)
		err = s.makeRequest(ctx, "sendMessage", msg)
		if err == nil {
			if !s.sleep(ctx, successPause) {
				return ctx.Err()
			}
			return nil
		}
		if attempt == sendAttempts {
			break
		}

		wait := retryDelay
		if rateLimited, retryAfter := isRateLimited(err); rateLimited {
			wait = retryAfter
			s.slog.Info("rate limited, waiting", "chat_id", s.chatID, "wait", wait)
		} else if isTimeout(err) {
			s.slog.Debug("sending timed out", "chat_id", s.chatID)
		} else {
			s.slog.Debug("sending failed", "chat_id", s.chatID, "error", err)
		}
		if !s.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
	return err
}

func (s *Sender) makeTelegramRequest(ctx context.Context, method string, args any) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        tgAPI + "/bot" + s.token + "/" + method,
		Body:       args,
		HTTPClient: s.httpc,
		Scrubber:   strings.NewReplacer(s.token, "[EXPUNGED]"),
	})
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRateLimited(err error) (bool, time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	var errorResponse struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return false, 0
	}

	return true, time.Duration(errorResponse.Parameters.RetryAfter) * time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
