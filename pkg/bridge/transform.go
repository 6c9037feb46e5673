// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ReplyFallback selects how replies are rendered when the destination has
// no native reply mechanism.
type ReplyFallback string

const (
	// ReplyFallbackQuote synthesizes a quote line from the cached link.
	ReplyFallbackQuote ReplyFallback = "quote"
	// ReplyFallbackSilent sends the message with no reply indicator.
	ReplyFallbackSilent ReplyFallback = "silent"
)

// quoteAuthorLength caps the author name in a quote fallback line.
const quoteAuthorLength = 50

// Transformer builds the outbound payload from an inbound event, consulting
// the resolver for mention/emoji substitution and the link cache for reply
// linkage.
type Transformer struct {
	cache    *LinkCache
	fallback ReplyFallback
	log      zerolog.Logger
}

func NewTransformer(cache *LinkCache, fallback ReplyFallback, log zerolog.Logger) *Transformer {
	if fallback == "" {
		fallback = ReplyFallbackQuote
	}
	return &Transformer{
		cache:    cache,
		fallback: fallback,
		log:      log.With().Str("component", "transformer").Logger(),
	}
}

// Transform produces the outbound payload for evt. Attachment handling is
// done separately by the AttachmentRelay; the returned payload carries only
// text, identity and reply linkage.
func (t *Transformer) Transform(ctx context.Context, evt *Event, resolver Resolver, caps Capabilities) *Payload {
	resolved := resolver.ResolveOutboundText(ctx, evt)
	payload := &Payload{
		Name:          evt.AuthorDisplayName,
		AvatarURL:     evt.AuthorAvatarURL,
		Text:          resolved,
		snippetSource: resolved,
	}

	if evt.ReplyToMessageID != "" {
		t.applyReply(evt, payload, caps)
	}

	return payload
}

// applyReply resolves the reply reference through the link cache. A miss
// (evicted or never tracked) produces no indicator at all, never a broken
// reference.
func (t *Transformer) applyReply(evt *Event, payload *Payload, caps Capabilities) {
	link, ok := t.cache.Get(evt.Platform, evt.ReplyToMessageID)
	if !ok {
		t.log.Debug().
			Str("message_id", evt.MessageID).
			Str("reply_to", evt.ReplyToMessageID).
			Msg("Reply target not in link cache, sending without indicator")
		return
	}

	if caps.NativeReplies {
		payload.ReplyTo = link.ID(otherPlatform(evt.Platform))
		return
	}

	if t.fallback == ReplyFallbackSilent {
		return
	}
	payload.Text = quoteLine(link.AuthorName, link.Snippet) + "\n" + payload.Text
}

// quoteLine renders the quote fallback in the bridge's wire format.
func quoteLine(author, snippet string) string {
	return fmt.Sprintf("-# ↩ **%s**: *%s*", truncate(author, quoteAuthorLength), snippet)
}

func otherPlatform(p Platform) Platform {
	if p == PlatformDiscord {
		return PlatformRevolt
	}
	return PlatformDiscord
}

// truncate clips s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
