// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// welcomeText is the privacy notice DMed to a user the first time they
// write in a bridged channel.
const welcomeText = `👋 **Hey! You just used the Discord ↔ Revolt Bridge.**

This bridge connects a channel on this platform with a channel on the other one, forwarding messages between both in real time.

**What happens to your messages?**
• Your **display name** and **profile picture** are shown on the other platform.
• The **content** of your messages (text and attachments) is transferred to the other platform.
• Attachments are briefly buffered in the bridge's memory for forwarding and discarded immediately afterwards.
• **No** messages are stored permanently by the bridge.

**Deletion:**
If you delete a message, it will automatically be deleted on the other platform as well.

If you don't want your messages to be transferred, simply stop writing in the bridged channel — your messages will not be forwarded.`

// DMSender delivers a direct message to a user on one platform.
type DMSender interface {
	SendDM(ctx context.Context, userID, text string) error
}

// notifiedUsers is the JSON shape of the persisted store.
type notifiedUsers struct {
	Discord []string `json:"discord"`
	Revolt  []string `json:"revolt"`
}

// Notifier sends each user a one-time welcome DM on first use of a bridged
// channel. Notified user IDs are persisted to a small JSON file so restarts
// do not re-notify. DM delivery is best-effort; users with closed DMs are
// still marked as notified.
type Notifier struct {
	log  zerolog.Logger
	path string

	mu      sync.Mutex
	seen    map[Platform]map[string]struct{}
	senders map[Platform]DMSender
}

// NewNotifier loads the store from path, creating an empty one if the file
// does not exist.
func NewNotifier(path string, log zerolog.Logger) (*Notifier, error) {
	n := &Notifier{
		log:  log.With().Str("component", "notifier").Logger(),
		path: path,
		seen: map[Platform]map[string]struct{}{
			PlatformDiscord: {},
			PlatformRevolt:  {},
		},
		senders: make(map[Platform]DMSender),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return n, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notified users store: %w", err)
	}
	var stored notifiedUsers
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse notified users store: %w", err)
	}
	for _, id := range stored.Discord {
		n.seen[PlatformDiscord][id] = struct{}{}
	}
	for _, id := range stored.Revolt {
		n.seen[PlatformRevolt][id] = struct{}{}
	}
	n.log.Info().
		Int("discord", len(stored.Discord)).
		Int("revolt", len(stored.Revolt)).
		Msg("Loaded notified users")
	return n, nil
}

// SetSender registers the DM sender for a platform.
func (n *Notifier) SetSender(p Platform, sender DMSender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.senders[p] = sender
}

// NotifyOnce sends the welcome DM if the user has not been notified before.
// The DM itself goes out on a separate goroutine so relay latency is not
// tied to DM delivery.
func (n *Notifier) NotifyOnce(ctx context.Context, p Platform, userID string) {
	if userID == "" {
		return
	}

	n.mu.Lock()
	if _, ok := n.seen[p][userID]; ok {
		n.mu.Unlock()
		return
	}
	n.seen[p][userID] = struct{}{}
	sender := n.senders[p]
	if err := n.saveLocked(); err != nil {
		n.log.Error().Err(err).Msg("Failed to save notified users store")
	}
	n.mu.Unlock()

	if sender == nil {
		return
	}
	go func() {
		if err := sender.SendDM(ctx, userID, welcomeText); err != nil {
			n.log.Debug().Err(err).
				Str("platform", string(p)).
				Str("user_id", userID).
				Msg("Could not send welcome DM")
		} else {
			n.log.Info().
				Str("platform", string(p)).
				Str("user_id", userID).
				Msg("Sent welcome DM")
		}
	}()
}

func (n *Notifier) saveLocked() error {
	stored := notifiedUsers{
		Discord: make([]string, 0, len(n.seen[PlatformDiscord])),
		Revolt:  make([]string, 0, len(n.seen[PlatformRevolt])),
	}
	for id := range n.seen[PlatformDiscord] {
		stored.Discord = append(stored.Discord, id)
	}
	for id := range n.seen[PlatformRevolt] {
		stored.Revolt = append(stored.Revolt, id)
	}
	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(n.path, data, 0o600)
}
