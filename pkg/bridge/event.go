// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import "context"

// Platform identifies one side of the bridge.
type Platform string

const (
	PlatformDiscord Platform = "discord"
	PlatformRevolt  Platform = "revolt"
)

// EventType is the kind of inbound event.
type EventType string

const (
	EventMessage EventType = "message"
	EventDelete  EventType = "delete"
)

// Attachment references a file attached to an inbound message.
type Attachment struct {
	URL      string
	Filename string
	Size     int64
}

// Event is a normalized inbound event from either platform. The adapters
// translate SDK payloads into this shape; the engine never sees SDK types.
type Event struct {
	Platform  Platform
	Type      EventType
	MessageID string
	ChannelID string
	// GuildID scopes Discord member/role lookups. Empty on Revolt events.
	GuildID           string
	AuthorID          string
	AuthorDisplayName string
	AuthorAvatarURL   string
	Text              string
	Attachments       []Attachment
	ReplyToMessageID  string
	// FromBridge is set by the adapter when the sender is already known to
	// be a bridge identity (e.g. the message carries our webhook ID).
	FromBridge bool
}

// File is fetched attachment data ready for inline re-upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Payload is the outbound representation of a transformed message.
type Payload struct {
	Name      string
	AvatarURL string
	Text      string
	Files     []*File
	// ReplyTo is the destination-native reply target message ID. Only set
	// when the destination supports native replies.
	ReplyTo string

	// snippetSource is the resolved message text before any quote fallback
	// line was prepended; used for the cached link's snippet.
	snippetSource string
}

// Capabilities describes what a destination platform accepts.
type Capabilities struct {
	// InlineUploads is true when attachments can be re-uploaded as files.
	// When false, attachment URLs are appended to the message text instead.
	InlineUploads bool
	// NativeReplies is true when the send mechanism can express a reply
	// reference. When false, a quote fallback line is synthesized.
	NativeReplies bool
}

// Forwarder sends and deletes messages on one platform under the bridge's
// identity-override mechanism (webhook on Discord, masquerade on Revolt).
type Forwarder interface {
	// Send delivers the payload and returns the new message ID.
	Send(ctx context.Context, channelID string, payload *Payload) (string, error)
	// Delete removes a previously forwarded or user-authored message.
	// Returns ErrRemoteNotFound when the message is already gone.
	Delete(ctx context.Context, channelID, messageID string) error
}

// Resolver rewrites platform ID tokens in inbound text to readable forms.
type Resolver interface {
	ResolveOutboundText(ctx context.Context, evt *Event) string
}
