// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/discord-revolt-bridge/pkg/bridge/discordfmt"
)

const (
	discordMaxTextLength = 2000
	discordMaxNameLength = 80
)

// DiscordClient is the Discord side of the bridge: it consumes gateway
// events into normalized Events, forwards messages via per-channel webhooks
// with identity override, and serves directory lookups for mention
// resolution.
type DiscordClient struct {
	session *discordgo.Session
	log     zerolog.Logger
	guard   *LoopGuard

	channelIDs  []string
	webhookName string
	events      chan *Event
	// done unblocks any handler waiting to deliver an event. The handlers
	// run on discordgo's listen goroutine, which outlives session.Close, so
	// events must never be closed from here.
	done chan struct{}

	mu       sync.Mutex
	webhooks map[string]*discordgo.Webhook // by channel ID
}

var (
	_ Forwarder = (*DiscordClient)(nil)
	_ DMSender  = (*DiscordClient)(nil)
)

// NewDiscordClient creates the client for the given bridged Discord
// channels. Call Connect to open the gateway.
func NewDiscordClient(token, webhookName string, channelIDs []string, guard *LoopGuard, log zerolog.Logger) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildWebhooks |
		discordgo.IntentMessageContent
	// Handlers must run in gateway order so the per-stream sequential
	// processing guarantee holds.
	session.SyncEvents = true

	d := &DiscordClient{
		session:     session,
		log:         log.With().Str("component", "discord_client").Logger(),
		guard:       guard,
		channelIDs:  channelIDs,
		webhookName: webhookName,
		events:      make(chan *Event, 64),
		done:        make(chan struct{}),
		webhooks:    make(map[string]*discordgo.Webhook),
	}
	session.AddHandler(d.handleReady)
	session.AddHandler(d.handleMessageCreate)
	session.AddHandler(d.handleMessageDelete)
	return d, nil
}

// Connect opens the gateway session and warms the per-channel webhooks so
// their IDs are registered with the loop guard before any traffic flows.
func (d *DiscordClient) Connect(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	if user := d.session.State.User; user != nil {
		d.guard.AddIdentity(PlatformDiscord, user.ID)
	}
	for _, channelID := range d.channelIDs {
		if _, err := d.getOrCreateWebhook(ctx, channelID); err != nil {
			d.log.Error().Err(err).Str("channel_id", channelID).Msg("Could not set up webhook")
		}
	}
	return nil
}

// Close shuts the gateway session and releases any handler still waiting to
// deliver an event. The event channel itself is left open: discordgo keeps
// dispatching to handlers on its own goroutine for a moment after Close
// returns, and consumers stop through their context instead.
func (d *DiscordClient) Close() error {
	close(d.done)
	return d.session.Close()
}

// deliver hands an event to the consumer, giving up once Close is called.
func (d *DiscordClient) deliver(evt *Event) {
	select {
	case d.events <- evt:
	case <-d.done:
	}
}

// Events returns the normalized inbound event stream.
func (d *DiscordClient) Events() <-chan *Event {
	return d.events
}

// Port returns this side's engine binding. As a destination Discord accepts
// inline file re-uploads but webhooks cannot express native replies.
func (d *DiscordClient) Port() *Port {
	return &Port{
		Platform:  PlatformDiscord,
		Events:    d.events,
		Forwarder: d,
		Resolver:  &discordResolver{inner: discordfmt.NewResolver(d)},
		Caps: Capabilities{
			InlineUploads: true,
			NativeReplies: false,
		},
	}
}

func (d *DiscordClient) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	d.log.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Connected to Discord")
}

func (d *DiscordClient) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	evt := &Event{
		Platform:          PlatformDiscord,
		Type:              EventMessage,
		MessageID:         m.ID,
		ChannelID:         m.ChannelID,
		GuildID:           m.GuildID,
		AuthorID:          m.Author.ID,
		AuthorDisplayName: discordDisplayName(m.Member, m.Author),
		AuthorAvatarURL:   m.Author.AvatarURL("256"),
		Text:              m.Content,
	}
	// Webhook messages carry the webhook ID as the author ID; flag ours
	// explicitly so the guard drops them even before webhook warm-up.
	if m.WebhookID != "" && d.isOwnWebhook(m.WebhookID) {
		evt.FromBridge = true
	}
	for _, att := range m.Attachments {
		evt.Attachments = append(evt.Attachments, Attachment{
			URL:      att.URL,
			Filename: att.Filename,
			Size:     int64(att.Size),
		})
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		evt.ReplyToMessageID = m.MessageReference.MessageID
	}
	d.deliver(evt)
}

func (d *DiscordClient) handleMessageDelete(_ *discordgo.Session, m *discordgo.MessageDelete) {
	d.deliver(&Event{
		Platform:  PlatformDiscord,
		Type:      EventDelete,
		MessageID: m.ID,
		ChannelID: m.ChannelID,
	})
}

func (d *DiscordClient) isOwnWebhook(webhookID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, wh := range d.webhooks {
		if wh.ID == webhookID {
			return true
		}
	}
	return false
}

// getOrCreateWebhook returns the channel's bridge webhook, creating it
// idempotently: an existing webhook with the expected name is reused. The
// webhook ID is registered as a bridge identity either way.
func (d *DiscordClient) getOrCreateWebhook(ctx context.Context, channelID string) (*discordgo.Webhook, error) {
	d.mu.Lock()
	wh, ok := d.webhooks[channelID]
	d.mu.Unlock()
	if ok {
		return wh, nil
	}

	existing, err := d.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks for %s: %w", channelID, err)
	}
	for _, candidate := range existing {
		if candidate.Name == d.webhookName && candidate.Token != "" {
			wh = candidate
			d.log.Info().
				Str("channel_id", channelID).
				Str("webhook_id", wh.ID).
				Msg("Reusing existing webhook")
			break
		}
	}
	if wh == nil {
		wh, err = d.session.WebhookCreate(channelID, d.webhookName, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook for %s: %w", channelID, err)
		}
		d.log.Info().
			Str("channel_id", channelID).
			Str("webhook_id", wh.ID).
			Msg("Created webhook")
	}

	d.guard.AddIdentity(PlatformDiscord, wh.ID)
	d.mu.Lock()
	d.webhooks[channelID] = wh
	d.mu.Unlock()
	return wh, nil
}

// Send implements Forwarder by executing the channel's webhook with the
// payload's identity override.
func (d *DiscordClient) Send(ctx context.Context, channelID string, payload *Payload) (string, error) {
	wh, err := d.getOrCreateWebhook(ctx, channelID)
	if err != nil {
		return "", err
	}

	name := truncate(payload.Name, discordMaxNameLength)
	if name == "" {
		name = "unknown"
	}
	params := &discordgo.WebhookParams{
		Content:   truncate(payload.Text, discordMaxTextLength),
		Username:  name,
		AvatarURL: payload.AvatarURL,
	}
	for _, f := range payload.Files {
		params.Files = append(params.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}

	msg, err := d.session.WebhookExecute(wh.ID, wh.Token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("webhook execute failed: %w", err)
	}
	return msg.ID, nil
}

// Delete implements Forwarder. Webhook-authored messages are deleted via
// the webhook (no extra permissions needed); user-authored messages fall
// back to the bot's channel permissions.
func (d *DiscordClient) Delete(ctx context.Context, channelID, messageID string) error {
	d.mu.Lock()
	wh := d.webhooks[channelID]
	d.mu.Unlock()

	if wh != nil {
		err := d.session.WebhookMessageDelete(wh.ID, wh.Token, messageID, discordgo.WithContext(ctx))
		if err == nil {
			return nil
		}
		if !discordNotFound(err) {
			d.log.Debug().Err(err).
				Str("message_id", messageID).
				Msg("Webhook delete failed, trying channel delete")
		}
	}

	err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if discordNotFound(err) {
		return ErrRemoteNotFound
	}
	if err != nil {
		return fmt.Errorf("channel message delete failed: %w", err)
	}
	return nil
}

// SendDM implements DMSender for first-use welcome notices.
func (d *DiscordClient) SendDM(ctx context.Context, userID, text string) error {
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	_, err = d.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return err
}

func discordNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

func discordDisplayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

// MemberDisplayName implements discordfmt.Directory using the gateway
// state cache with a REST fallback.
func (d *DiscordClient) MemberDisplayName(ctx context.Context, guildID, userID string) (string, bool) {
	if guildID == "" {
		return "", false
	}
	member, err := d.session.State.Member(guildID, userID)
	if err != nil {
		member, err = d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return "", false
		}
	}
	return discordDisplayName(member, member.User), true
}

// ChannelName implements discordfmt.Directory.
func (d *DiscordClient) ChannelName(ctx context.Context, channelID string) (string, bool) {
	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		ch, err = d.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return "", false
		}
	}
	return ch.Name, true
}

// RoleName implements discordfmt.Directory.
func (d *DiscordClient) RoleName(ctx context.Context, guildID, roleID string) (string, bool) {
	if guildID == "" {
		return "", false
	}
	role, err := d.session.State.Role(guildID, roleID)
	if err == nil {
		return role.Name, true
	}
	roles, err := d.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", false
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r.Name, true
		}
	}
	return "", false
}

// discordResolver adapts discordfmt to the engine's Resolver interface.
type discordResolver struct {
	inner *discordfmt.Resolver
}

func (r *discordResolver) ResolveOutboundText(ctx context.Context, evt *Event) string {
	return r.inner.Resolve(ctx, evt.GuildID, evt.Text)
}
