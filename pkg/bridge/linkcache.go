// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"sync"
	"time"
)

// DefaultCacheSize is the default reply link cache capacity.
const DefaultCacheSize = 500

// snippetLength is how much of a message's text is retained for quote
// fallback rendering.
const snippetLength = 100

// MessageLink records one forwarded message's identity on both platforms,
// plus the metadata needed to render a quote fallback without refetching.
type MessageLink struct {
	DiscordID  string
	RevoltID   string
	AuthorName string
	Snippet    string
	CreatedAt  time.Time
}

// ID returns the link's message ID on the given platform.
func (l *MessageLink) ID(p Platform) string {
	if p == PlatformDiscord {
		return l.DiscordID
	}
	return l.RevoltID
}

// LinkCache is a bounded store of MessageLinks with O(1) lookup by either
// platform's message ID. Eviction is strict FIFO on insertion order:
// lookups never refresh an entry, so replies to old messages degrade
// gracefully instead of being kept alive by unrelated traffic.
//
// All methods are safe for concurrent use by the two stream consumers. The
// lock is only held for the duration of a lookup or insert, never across
// network calls.
type LinkCache struct {
	mu        sync.Mutex
	capacity  int
	order     []*MessageLink
	byDiscord map[string]*MessageLink
	byRevolt  map[string]*MessageLink
}

// NewLinkCache creates a cache holding at most capacity links. A capacity
// of zero or less falls back to DefaultCacheSize.
func NewLinkCache(capacity int) *LinkCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &LinkCache{
		capacity:  capacity,
		byDiscord: make(map[string]*MessageLink, capacity),
		byRevolt:  make(map[string]*MessageLink, capacity),
	}
}

// Insert records a new link, evicting the oldest entry when full.
func (c *LinkCache) Insert(link *MessageLink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = append(c.order, link)
	c.byDiscord[link.DiscordID] = link
	c.byRevolt[link.RevoltID] = link

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order[0] = nil
		c.order = c.order[1:]
		c.deleteLocked(oldest)
	}
}

// Get returns the link whose message ID on the given platform matches id.
func (c *LinkCache) Get(p Platform, id string) (*MessageLink, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var link *MessageLink
	var ok bool
	if p == PlatformDiscord {
		link, ok = c.byDiscord[id]
	} else {
		link, ok = c.byRevolt[id]
	}
	return link, ok
}

// Remove deletes the link matching id on the given platform. Removing an
// absent link is a no-op, which makes delete synchronization idempotent.
func (c *LinkCache) Remove(p Platform, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var link *MessageLink
	var ok bool
	if p == PlatformDiscord {
		link, ok = c.byDiscord[id]
	} else {
		link, ok = c.byRevolt[id]
	}
	if !ok {
		return
	}
	for i, l := range c.order {
		if l == link {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.deleteLocked(link)
}

// Len returns the number of cached links.
func (c *LinkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *LinkCache) deleteLocked(link *MessageLink) {
	// Only delete map entries still pointing at this link so a newer link
	// reusing an ID is not clobbered by an eviction of the old one.
	if c.byDiscord[link.DiscordID] == link {
		delete(c.byDiscord, link.DiscordID)
	}
	if c.byRevolt[link.RevoltID] == link {
		delete(c.byRevolt, link.RevoltID)
	}
}

// makeSnippet flattens and truncates message text for quote fallback use.
func makeSnippet(text string) string {
	flat := make([]rune, 0, snippetLength)
	for _, r := range text {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		flat = append(flat, r)
		if len(flat) >= snippetLength {
			break
		}
	}
	return string(flat)
}
