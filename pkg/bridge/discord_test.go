// Copyright 2024-2026 Aiku AI

package bridge

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// The gateway handlers run on discordgo's listen goroutine, which is not
// joined by session.Close. A delete arriving mid-shutdown must neither panic
// nor block once Close has released the client.
func TestDiscordClientHandlersUnblockAfterClose(t *testing.T) {
	t.Parallel()

	d, err := NewDiscordClient("token", "bridge", nil, NewLoopGuard(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDiscordClient: %v", err)
	}

	// Fill the buffer so the next delivery would block on a live channel.
	for i := 0; i < cap(d.events); i++ {
		d.handleMessageDelete(nil, &discordgo.MessageDelete{
			Message: &discordgo.Message{ID: fmt.Sprintf("msg-%d", i), ChannelID: "chan"},
		})
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	delivered := make(chan struct{})
	go func() {
		d.handleMessageDelete(nil, &discordgo.MessageDelete{
			Message: &discordgo.Message{ID: "late", ChannelID: "chan"},
		})
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler stayed blocked after Close")
	}
}
