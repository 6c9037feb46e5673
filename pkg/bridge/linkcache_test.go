// Copyright 2024-2026 Aiku AI

package bridge

import (
	"fmt"
	"strings"
	"testing"
)

func TestLinkCacheLookupBothSides(t *testing.T) {
	t.Parallel()
	c := NewLinkCache(10)
	c.Insert(&MessageLink{DiscordID: "d1", RevoltID: "r1", AuthorName: "Alice"})

	link, ok := c.Get(PlatformDiscord, "d1")
	if !ok || link.RevoltID != "r1" {
		t.Errorf("Get by discord ID: got %+v, %v", link, ok)
	}
	link, ok = c.Get(PlatformRevolt, "r1")
	if !ok || link.DiscordID != "d1" {
		t.Errorf("Get by revolt ID: got %+v, %v", link, ok)
	}
	if _, ok := c.Get(PlatformDiscord, "r1"); ok {
		t.Error("revolt ID should not resolve on the discord side")
	}
}

func TestLinkCacheFIFOEviction(t *testing.T) {
	t.Parallel()
	c := NewLinkCache(3)
	for i := 1; i <= 5; i++ {
		c.Insert(&MessageLink{
			DiscordID: fmt.Sprintf("d%d", i),
			RevoltID:  fmt.Sprintf("r%d", i),
		})
	}

	if c.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", c.Len())
	}
	for _, id := range []string{"d1", "d2"} {
		if _, ok := c.Get(PlatformDiscord, id); ok {
			t.Errorf("%s should have been evicted", id)
		}
	}
	for _, id := range []string{"d3", "d4", "d5"} {
		if _, ok := c.Get(PlatformDiscord, id); !ok {
			t.Errorf("%s should still be cached", id)
		}
	}
}

func TestLinkCacheLookupDoesNotRefresh(t *testing.T) {
	t.Parallel()
	c := NewLinkCache(2)
	c.Insert(&MessageLink{DiscordID: "d1", RevoltID: "r1"})
	c.Insert(&MessageLink{DiscordID: "d2", RevoltID: "r2"})

	// A lookup must not promote d1; the next insert still evicts it.
	if _, ok := c.Get(PlatformDiscord, "d1"); !ok {
		t.Fatal("d1 should be cached")
	}
	c.Insert(&MessageLink{DiscordID: "d3", RevoltID: "r3"})

	if _, ok := c.Get(PlatformDiscord, "d1"); ok {
		t.Error("d1 should have been evicted despite the recent lookup")
	}
	if _, ok := c.Get(PlatformDiscord, "d2"); !ok {
		t.Error("d2 should still be cached")
	}
}

func TestLinkCacheRemoveIdempotent(t *testing.T) {
	t.Parallel()
	c := NewLinkCache(10)
	c.Insert(&MessageLink{DiscordID: "d1", RevoltID: "r1"})

	c.Remove(PlatformDiscord, "d1")
	if _, ok := c.Get(PlatformRevolt, "r1"); ok {
		t.Error("removing by discord ID should drop the revolt side too")
	}
	if c.Len() != 0 {
		t.Errorf("Len after remove: got %d, want 0", c.Len())
	}

	// Second removal and removal of unknown IDs are no-ops.
	c.Remove(PlatformDiscord, "d1")
	c.Remove(PlatformRevolt, "never-seen")
}

func TestMessageLinkID(t *testing.T) {
	t.Parallel()
	link := &MessageLink{DiscordID: "d1", RevoltID: "r1"}
	if got := link.ID(PlatformDiscord); got != "d1" {
		t.Errorf("ID(discord): got %q, want %q", got, "d1")
	}
	if got := link.ID(PlatformRevolt); got != "r1" {
		t.Errorf("ID(revolt): got %q, want %q", got, "r1")
	}
}

func TestMakeSnippet(t *testing.T) {
	t.Parallel()
	if got := makeSnippet("line one\nline two\r\nthree"); got != "line one line two  three" {
		t.Errorf("newline flattening: got %q", got)
	}
	long := strings.Repeat("ä", 150)
	got := makeSnippet(long)
	if want := strings.Repeat("ä", 100); got != want {
		t.Errorf("truncation: got %d runes, want 100", len([]rune(got)))
	}
	if got := makeSnippet("short"); got != "short" {
		t.Errorf("short text: got %q", got)
	}
}
