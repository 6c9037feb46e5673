// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package revolt

// User is a Revolt user as returned by the users API.
type User struct {
	ID          string `json:"_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      *File  `json:"avatar,omitempty"`
	Bot         *struct {
		Owner string `json:"owner"`
	} `json:"bot,omitempty"`
}

// Name returns the best human-readable name for the user.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// File describes an uploaded Autumn file (avatar, attachment, ...).
type File struct {
	ID          string `json:"_id"`
	Tag         string `json:"tag"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// Emoji is a custom server emoji.
type Emoji struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Parent any    `json:"parent,omitempty"`
}

// Channel is the subset of channel data the bridge needs.
type Channel struct {
	ID   string `json:"_id"`
	Type string `json:"channel_type"`
	Name string `json:"name,omitempty"`
}

// Masquerade overrides the displayed author of a sent message.
type Masquerade struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Reply references a message being replied to.
type Reply struct {
	ID      string `json:"id"`
	Mention bool   `json:"mention"`
}

// Message is a Revolt message, both as received from the gateway and as
// returned by the send endpoint.
type Message struct {
	ID          string      `json:"_id"`
	Nonce       string      `json:"nonce,omitempty"`
	ChannelID   string      `json:"channel"`
	AuthorID    string      `json:"author"`
	Content     string      `json:"content,omitempty"`
	Attachments []*File     `json:"attachments,omitempty"`
	Replies     []string    `json:"replies,omitempty"`
	Masquerade  *Masquerade `json:"masquerade,omitempty"`
}

// SendMessageRequest is the body of POST /channels/{id}/messages.
type SendMessageRequest struct {
	Content    string      `json:"content,omitempty"`
	Nonce      string      `json:"nonce,omitempty"`
	Replies    []Reply     `json:"replies,omitempty"`
	Masquerade *Masquerade `json:"masquerade,omitempty"`
}
