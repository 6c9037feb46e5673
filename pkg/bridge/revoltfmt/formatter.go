// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package revoltfmt resolves Revolt ID tokens (ULID user mentions and custom
// emoji references) in message text to plain readable text before forwarding
// to Discord.
package revoltfmt

import (
	"context"
	"regexp"
	"sync"
)

var (
	userRe  = regexp.MustCompile(`<@([0-9A-Z]{26})>`)
	emojiRe = regexp.MustCompile(`:([0-9A-Z]{26}):`)
)

// Directory looks up display names for Revolt IDs via the API. The second
// return value is false when the ID cannot be resolved.
type Directory interface {
	UserDisplayName(ctx context.Context, userID string) (string, bool)
	EmojiName(ctx context.Context, emojiID string) (string, bool)
}

// Resolver substitutes Revolt ID tokens with readable forms. Tokens that
// cannot be resolved are left untouched.
//
// Emoji names are cached for the process lifetime with no TTL: emoji sets
// rarely rename mid-session, and a cache miss simply triggers a fresh
// directory call. The cache is rebuilt on restart.
type Resolver struct {
	dir Directory

	emojiMu    sync.Mutex
	emojiNames map[string]string
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{
		dir:        dir,
		emojiNames: make(map[string]string),
	}
}

// Resolve rewrites all supported token patterns in text.
func (r *Resolver) Resolve(ctx context.Context, text string) string {
	text = userRe.ReplaceAllStringFunc(text, func(token string) string {
		id := userRe.FindStringSubmatch(token)[1]
		if name, ok := r.dir.UserDisplayName(ctx, id); ok {
			return "@" + name
		}
		return token
	})
	text = emojiRe.ReplaceAllStringFunc(text, func(token string) string {
		id := emojiRe.FindStringSubmatch(token)[1]
		if name, ok := r.emojiName(ctx, id); ok {
			return ":" + name + ":"
		}
		return token
	})
	return text
}

func (r *Resolver) emojiName(ctx context.Context, emojiID string) (string, bool) {
	r.emojiMu.Lock()
	name, cached := r.emojiNames[emojiID]
	r.emojiMu.Unlock()
	if cached {
		return name, true
	}

	name, ok := r.dir.EmojiName(ctx, emojiID)
	if !ok {
		// Not cached: a later lookup retries the directory.
		return "", false
	}

	r.emojiMu.Lock()
	r.emojiNames[emojiID] = name
	r.emojiMu.Unlock()
	return name, true
}
