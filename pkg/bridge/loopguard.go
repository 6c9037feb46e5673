// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import "sync"

// LoopGuard filters inbound events that originate from the bridge's own
// outbound identities (webhook IDs on Discord, the bot user on Revolt).
// It is the first check in the pipeline; without it every forwarded message
// would be forwarded back forever.
type LoopGuard struct {
	mu  sync.RWMutex
	ids map[Platform]map[string]struct{}
}

func NewLoopGuard() *LoopGuard {
	return &LoopGuard{ids: map[Platform]map[string]struct{}{
		PlatformDiscord: {},
		PlatformRevolt:  {},
	}}
}

// AddIdentity registers a bridge sender identity. Identities are added at
// startup (bot users) or lazily when a webhook is first created or reused.
func (g *LoopGuard) AddIdentity(p Platform, id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ids[p][id] = struct{}{}
}

// Drop reports whether the event comes from a bridge identity and must be
// discarded before any other processing. No side effects.
func (g *LoopGuard) Drop(evt *Event) bool {
	if evt.FromBridge {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.ids[evt.Platform][evt.AuthorID]
	return ok
}
