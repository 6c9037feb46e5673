// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package discordfmt resolves Discord ID tokens (user/channel/role mentions
// and custom emoji) in message text to plain readable text before forwarding
// to Revolt.
package discordfmt

import (
	"context"
	"regexp"
)

var (
	userRe    = regexp.MustCompile(`<@!?(\d+)>`)
	channelRe = regexp.MustCompile(`<#(\d+)>`)
	roleRe    = regexp.MustCompile(`<@&(\d+)>`)
	emojiRe   = regexp.MustCompile(`<a?:([A-Za-z0-9_]+):\d+>`)
)

// Directory looks up display names for Discord IDs. Implementations are
// expected to be backed by the gateway state cache with a REST fallback.
// The second return value is false when the ID cannot be resolved.
type Directory interface {
	MemberDisplayName(ctx context.Context, guildID, userID string) (string, bool)
	ChannelName(ctx context.Context, channelID string) (string, bool)
	RoleName(ctx context.Context, guildID, roleID string) (string, bool)
}

// Resolver substitutes Discord ID tokens with readable forms. Tokens that
// cannot be resolved are left untouched so content is never silently dropped.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve rewrites all supported token patterns in text. guildID scopes the
// member and role lookups and may be empty for DMs.
func (r *Resolver) Resolve(ctx context.Context, guildID, text string) string {
	text = userRe.ReplaceAllStringFunc(text, func(token string) string {
		id := userRe.FindStringSubmatch(token)[1]
		if name, ok := r.dir.MemberDisplayName(ctx, guildID, id); ok {
			return "@" + name
		}
		return token
	})
	text = channelRe.ReplaceAllStringFunc(text, func(token string) string {
		id := channelRe.FindStringSubmatch(token)[1]
		if name, ok := r.dir.ChannelName(ctx, id); ok {
			return "#" + name
		}
		return token
	})
	text = roleRe.ReplaceAllStringFunc(text, func(token string) string {
		id := roleRe.FindStringSubmatch(token)[1]
		if name, ok := r.dir.RoleName(ctx, guildID, id); ok {
			return "@" + name
		}
		return token
	})
	// Custom emoji carry their name in the token itself.
	text = emojiRe.ReplaceAllString(text, ":$1:")
	return text
}
