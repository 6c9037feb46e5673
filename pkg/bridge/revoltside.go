// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aiku/discord-revolt-bridge/pkg/bridge/revoltfmt"
	"github.com/aiku/discord-revolt-bridge/pkg/revolt"
)

const (
	revoltMaxTextLength = 2000
	// Revolt rejects masquerade names longer than 32 characters.
	revoltMaxNameLength = 32
)

// RevoltClient is the Revolt side of the bridge: it consumes gateway events
// into normalized Events, forwards messages with masquerade identity
// override, and serves directory lookups for mention resolution. Users seen
// on the gateway are cached for the process lifetime.
type RevoltClient struct {
	api    *revolt.Client
	gw     *revolt.Gateway
	log    zerolog.Logger
	guard  *LoopGuard
	events chan *Event

	channelIDs []string

	mu     sync.RWMutex
	users  map[string]*revolt.User
	selfID string
}

var (
	_ Forwarder = (*RevoltClient)(nil)
	_ DMSender  = (*RevoltClient)(nil)
)

func NewRevoltClient(api *revolt.Client, gw *revolt.Gateway, channelIDs []string, guard *LoopGuard, log zerolog.Logger) *RevoltClient {
	return &RevoltClient{
		api:        api,
		gw:         gw,
		log:        log.With().Str("component", "revolt_client").Logger(),
		guard:      guard,
		channelIDs: channelIDs,
		events:     make(chan *Event, 64),
		users:      make(map[string]*revolt.User),
	}
}

// Connect verifies the token and registers the bot user as a bridge
// identity, since masqueraded sends still arrive authored by the bot. The
// configured channels are probed so a bot that was never invited to one of
// them shows up in the logs at startup instead of as silent message loss.
func (r *RevoltClient) Connect(ctx context.Context) error {
	self, err := r.api.GetSelf(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify revolt session: %w", err)
	}
	r.mu.Lock()
	r.selfID = self.ID
	r.users[self.ID] = self
	r.mu.Unlock()
	r.guard.AddIdentity(PlatformRevolt, self.ID)
	r.log.Info().Str("user_id", self.ID).Str("username", self.Username).Msg("Authenticated with Revolt")

	for _, channelID := range r.channelIDs {
		ch, err := r.api.GetChannel(ctx, channelID)
		if err != nil {
			r.log.Error().Err(err).Str("channel_id", channelID).Msg("Bridged channel not accessible")
			continue
		}
		r.log.Debug().Str("channel_id", ch.ID).Str("name", ch.Name).Msg("Bridged channel verified")
	}
	return nil
}

// Run pumps the gateway until ctx is cancelled, translating gateway events
// into normalized bridge events. The event stream closes when it returns.
func (r *RevoltClient) Run(ctx context.Context) {
	defer close(r.events)
	go r.gw.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.gw.Events():
			if !ok {
				return
			}
			r.handleGatewayEvent(ctx, evt)
		}
	}
}

// Events returns the normalized inbound event stream.
func (r *RevoltClient) Events() <-chan *Event {
	return r.events
}

// Port returns this side's engine binding. As a destination Revolt gets
// attachments as links but supports native replies on masqueraded sends.
func (r *RevoltClient) Port() *Port {
	return &Port{
		Platform:  PlatformRevolt,
		Events:    r.events,
		Forwarder: r,
		Resolver:  &revoltResolver{inner: revoltfmt.NewResolver(r)},
		Caps: Capabilities{
			InlineUploads: false,
			NativeReplies: true,
		},
	}
}

func (r *RevoltClient) handleGatewayEvent(ctx context.Context, evt *revolt.GatewayEvent) {
	switch evt.Type {
	case revolt.EventReady:
		for _, user := range evt.Users {
			r.cacheUser(user)
		}
		r.log.Info().Int("users", len(evt.Users)).Msg("Revolt gateway ready")
	case revolt.EventMessage:
		r.handleMessage(ctx, evt.Message)
	case revolt.EventMessageDelete:
		r.deliver(ctx, &Event{
			Platform:  PlatformRevolt,
			Type:      EventDelete,
			MessageID: evt.MessageID,
			ChannelID: evt.ChannelID,
		})
	}
}

func (r *RevoltClient) handleMessage(ctx context.Context, msg *revolt.Message) {
	evt := &Event{
		Platform:  PlatformRevolt,
		Type:      EventMessage,
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
		Text:      msg.Content,
	}

	if msg.Masquerade != nil && msg.Masquerade.Name != "" {
		evt.AuthorDisplayName = msg.Masquerade.Name
		evt.AuthorAvatarURL = msg.Masquerade.Avatar
	} else if user := r.lookupUser(ctx, msg.AuthorID); user != nil {
		evt.AuthorDisplayName = user.Name()
		evt.AuthorAvatarURL = r.api.FileURL(user.Avatar)
	} else {
		evt.AuthorDisplayName = "unknown"
	}

	for _, f := range msg.Attachments {
		evt.Attachments = append(evt.Attachments, Attachment{
			URL:      r.api.FileURL(f),
			Filename: f.Filename,
			Size:     f.Size,
		})
	}
	if len(msg.Replies) > 0 {
		evt.ReplyToMessageID = msg.Replies[0]
	}

	r.deliver(ctx, evt)
}

func (r *RevoltClient) deliver(ctx context.Context, evt *Event) {
	select {
	case r.events <- evt:
	case <-ctx.Done():
	}
}

func (r *RevoltClient) cacheUser(user *revolt.User) {
	if user == nil || user.ID == "" {
		return
	}
	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()
}

func (r *RevoltClient) lookupUser(ctx context.Context, userID string) *revolt.User {
	r.mu.RLock()
	user, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return user
	}
	user, err := r.api.GetUser(ctx, userID)
	if err != nil {
		r.log.Debug().Err(err).Str("user_id", userID).Msg("Could not fetch user")
		return nil
	}
	r.cacheUser(user)
	return user
}

// Send implements Forwarder by posting a masqueraded message.
func (r *RevoltClient) Send(ctx context.Context, channelID string, payload *Payload) (string, error) {
	name := truncate(payload.Name, revoltMaxNameLength)
	if name == "" {
		name = "unknown"
	}
	req := &revolt.SendMessageRequest{
		Content: truncate(payload.Text, revoltMaxTextLength),
		Nonce:   uuid.NewString(),
		Masquerade: &revolt.Masquerade{
			Name:   name,
			Avatar: payload.AvatarURL,
		},
	}
	if payload.ReplyTo != "" {
		req.Replies = []revolt.Reply{{ID: payload.ReplyTo, Mention: false}}
	}

	msg, err := r.api.SendMessage(ctx, channelID, req)
	if err != nil {
		return "", fmt.Errorf("revolt send failed: %w", err)
	}
	return msg.ID, nil
}

// Delete implements Forwarder.
func (r *RevoltClient) Delete(ctx context.Context, channelID, messageID string) error {
	err := r.api.DeleteMessage(ctx, channelID, messageID)
	if errors.Is(err, revolt.ErrNotFound) {
		return ErrRemoteNotFound
	}
	return err
}

// SendDM implements DMSender for first-use welcome notices.
func (r *RevoltClient) SendDM(ctx context.Context, userID, text string) error {
	ch, err := r.api.OpenDM(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	_, err = r.api.SendMessage(ctx, ch.ID, &revolt.SendMessageRequest{
		Content: truncate(text, revoltMaxTextLength),
	})
	return err
}

// UserDisplayName implements revoltfmt.Directory.
func (r *RevoltClient) UserDisplayName(ctx context.Context, userID string) (string, bool) {
	user := r.lookupUser(ctx, userID)
	if user == nil {
		return "", false
	}
	return user.Name(), true
}

// EmojiName implements revoltfmt.Directory. revoltfmt caches the result
// for the process lifetime.
func (r *RevoltClient) EmojiName(ctx context.Context, emojiID string) (string, bool) {
	emoji, err := r.api.GetEmoji(ctx, emojiID)
	if err != nil {
		r.log.Debug().Err(err).Str("emoji_id", emojiID).Msg("Could not resolve emoji")
		return "", false
	}
	return emoji.Name, true
}

// revoltResolver adapts revoltfmt to the engine's Resolver interface.
type revoltResolver struct {
	inner *revoltfmt.Resolver
}

func (r *revoltResolver) ResolveOutboundText(ctx context.Context, evt *Event) string {
	return r.inner.Resolve(ctx, evt.Text)
}
