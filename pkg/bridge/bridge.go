// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Port binds one platform's inbound event stream to the machinery used to
// send toward it: its forwarder, its text resolver (for events it emits),
// and its capabilities as a destination.
type Port struct {
	Platform  Platform
	Events    <-chan *Event
	Forwarder Forwarder
	Resolver  Resolver
	Caps      Capabilities
}

// Engine is the message-translation-and-relay pipeline. It runs one
// consumer goroutine per platform; each consumer processes its stream's
// events strictly sequentially, so per-channel ordering is preserved within
// a stream while the two streams run concurrently against the shared link
// cache.
type Engine struct {
	log         zerolog.Logger
	pairs       *PairingTable
	cache       *LinkCache
	guard       *LoopGuard
	transformer *Transformer
	attachments *AttachmentRelay
	notifier    *Notifier

	discord *Port
	revolt  *Port

	discordForward Forwarder
	revoltForward  Forwarder
}

// NewEngine wires the pipeline. notifier may be nil to disable first-use
// welcome DMs. Both ports' forwarders are wrapped with bounded retries.
func NewEngine(log zerolog.Logger, pairs *PairingTable, cache *LinkCache, guard *LoopGuard,
	transformer *Transformer, attachments *AttachmentRelay, notifier *Notifier,
	discord, revolt *Port) *Engine {
	log = log.With().Str("component", "engine").Logger()
	return &Engine{
		log:            log,
		pairs:          pairs,
		cache:          cache,
		guard:          guard,
		transformer:    transformer,
		attachments:    attachments,
		notifier:       notifier,
		discord:        discord,
		revolt:         revolt,
		discordForward: newRetryingForwarder(discord.Forwarder, log),
		revoltForward:  newRetryingForwarder(revolt.Forwarder, log),
	}
}

// Run consumes both event streams until ctx is cancelled or both streams
// close. In-flight events are processed to completion before shutdown.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.consume(ctx, e.discord, e.revolt, e.revoltForward)
	}()
	go func() {
		defer wg.Done()
		e.consume(ctx, e.revolt, e.discord, e.discordForward)
	}()
	wg.Wait()
	e.log.Info().Msg("Engine stopped")
}

// consume processes src's events one at a time, forwarding toward dst.
func (e *Engine) consume(ctx context.Context, src, dst *Port, dstForward Forwarder) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-src.Events:
			if !ok {
				return
			}
			e.handleEvent(ctx, src, dst, dstForward, evt)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, src, dst *Port, dstForward Forwarder, evt *Event) {
	// Loop guard comes before everything else.
	if e.guard.Drop(evt) {
		return
	}

	pairedChannel, ok := e.pairs.Resolve(evt.ChannelID)
	if !ok {
		return
	}

	log := e.log.With().
		Str("platform", string(evt.Platform)).
		Str("channel_id", evt.ChannelID).
		Str("message_id", evt.MessageID).
		Logger()

	switch evt.Type {
	case EventMessage:
		e.relayMessage(ctx, log, src, dst, dstForward, evt, pairedChannel)
	case EventDelete:
		e.syncDelete(ctx, log, dstForward, evt, pairedChannel)
	default:
		log.Warn().Str("event_type", string(evt.Type)).Msg("Unhandled event type")
	}
}

func (e *Engine) relayMessage(ctx context.Context, log zerolog.Logger, src, dst *Port,
	dstForward Forwarder, evt *Event, pairedChannel string) {
	if e.notifier != nil {
		e.notifier.NotifyOnce(ctx, evt.Platform, evt.AuthorID)
	}

	payload := e.transformer.Transform(ctx, evt, src.Resolver, dst.Caps)
	e.attachments.Relay(ctx, evt.Attachments, payload, dst.Caps)

	// A bare reply reference is not enough: the APIs reject messages with no
	// content or attachments, so there is nothing deliverable here.
	if strings.TrimSpace(payload.Text) == "" && len(payload.Files) == 0 {
		log.Debug().Msg("Nothing to forward, dropping empty message")
		return
	}

	sentID, err := dstForward.Send(ctx, pairedChannel, payload)
	if err != nil {
		// Non-fatal: the message is dropped, nothing is recorded.
		log.Error().Err(err).Str("paired_channel", pairedChannel).Msg("Message dropped")
		return
	}

	link := &MessageLink{
		AuthorName: evt.AuthorDisplayName,
		Snippet:    makeSnippet(payload.snippetSource),
		CreatedAt:  time.Now(),
	}
	if evt.Platform == PlatformDiscord {
		link.DiscordID = evt.MessageID
		link.RevoltID = sentID
	} else {
		link.DiscordID = sentID
		link.RevoltID = evt.MessageID
	}
	e.cache.Insert(link)

	log.Debug().
		Str("paired_channel", pairedChannel).
		Str("sent_id", sentID).
		Msg("Message relayed")
}

// syncDelete mirrors a deletion onto the paired platform. The link is
// removed before the remote delete goes out: the remote deletion echoes back
// as a delete event from the other side, and that echo must already find no
// link, whatever order the two arrive in.
func (e *Engine) syncDelete(ctx context.Context, log zerolog.Logger, dstForward Forwarder,
	evt *Event, pairedChannel string) {
	link, ok := e.cache.Get(evt.Platform, evt.MessageID)
	if !ok {
		// Evicted or never linked; also how delete echoes die out.
		return
	}
	e.cache.Remove(evt.Platform, evt.MessageID)

	pairedID := link.ID(otherPlatform(evt.Platform))
	err := dstForward.Delete(ctx, pairedChannel, pairedID)
	switch {
	case err == nil:
		log.Debug().Str("paired_id", pairedID).Msg("Deletion synchronized")
	case errors.Is(err, ErrRemoteNotFound):
		log.Debug().Str("paired_id", pairedID).Msg("Paired message already gone")
	default:
		log.Error().Err(err).Str("paired_id", pairedID).Msg("Failed to delete paired message")
	}
}
