// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package revolt is a minimal Revolt API client covering the surface a
// message relay needs: bot-token REST calls for messages, users, emoji and
// DM channels, plus a self-healing WebSocket gateway for real-time events.
package revolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/retryafter"
)

// DefaultBaseURL is the public Revolt REST API endpoint.
const DefaultBaseURL = "https://api.revolt.chat"

// DefaultAutumnURL is the public Revolt file server endpoint.
const DefaultAutumnURL = "https://autumn.revolt.chat"

// rateLimitRetries is how many times a single request is retried after a 429
// before giving up. Higher-level delivery retries are handled by the caller.
const rateLimitRetries = 3

// ErrNotFound is returned when the API responds with 404.
var ErrNotFound = fmt.Errorf("revolt: not found")

// APIError is a non-2xx response from the Revolt API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("revolt: HTTP %d: %s", e.Status, e.Body)
}

// Client is a minimal Revolt REST API client authenticated as a bot.
type Client struct {
	BaseURL   string
	AutumnURL string
	Token     string
	HTTP      *http.Client

	log zerolog.Logger
}

// NewClient creates a bot-authenticated Revolt client. Empty URLs fall back
// to the public Revolt instance.
func NewClient(token, baseURL, autumnURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if autumnURL == "" {
		autumnURL = DefaultAutumnURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AutumnURL: strings.TrimRight(autumnURL, "/"),
		Token:     token,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		log:       log.With().Str("component", "revolt_api").Logger(),
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("X-Bot-Token", c.Token)
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < rateLimitRetries {
			wait := retryafter.Parse(resp.Header.Get("Retry-After"), 1*time.Second)
			_ = resp.Body.Close()
			c.log.Warn().
				Str("path", path).
				Dur("retry_after", wait).
				Int("attempt", attempt+1).
				Msg("Rate limited, waiting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		return decodeResponse(resp, out)
	}
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// GetSelf fetches the bot's own user.
func (c *Client) GetSelf(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches a user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetEmoji fetches a custom emoji by ID.
func (c *Client) GetEmoji(ctx context.Context, emojiID string) (*Emoji, error) {
	var emoji Emoji
	if err := c.do(ctx, http.MethodGet, "/custom/emoji/"+url.PathEscape(emojiID), nil, &emoji); err != nil {
		return nil, err
	}
	return &emoji, nil
}

// GetChannel fetches a channel by ID.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// SendMessage posts a message to a channel and returns the created message.
func (c *Client) SendMessage(ctx context.Context, channelID string, req *SendMessageRequest) (*Message, error) {
	var msg Message
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage deletes a message. Returns ErrNotFound if it is already gone.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// OpenDM opens (or fetches the existing) direct message channel with a user.
func (c *Client) OpenDM(ctx context.Context, userID string) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/dm", nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// FileURL builds the public Autumn URL for an uploaded file.
func (c *Client) FileURL(f *File) string {
	if f == nil || f.ID == "" {
		return ""
	}
	tag := f.Tag
	if tag == "" {
		tag = "attachments"
	}
	u := c.AutumnURL + "/" + url.PathEscape(tag) + "/" + url.PathEscape(f.ID)
	if f.Filename != "" {
		u += "/" + url.PathEscape(f.Filename)
	}
	return u
}
