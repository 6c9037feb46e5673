// Copyright 2024-2026 Aiku AI

package discordfmt

import (
	"context"
	"testing"
)

// mapDirectory serves lookups from fixed maps.
type mapDirectory struct {
	members  map[string]string
	channels map[string]string
	roles    map[string]string
}

func (d *mapDirectory) MemberDisplayName(_ context.Context, _, userID string) (string, bool) {
	name, ok := d.members[userID]
	return name, ok
}

func (d *mapDirectory) ChannelName(_ context.Context, channelID string) (string, bool) {
	name, ok := d.channels[channelID]
	return name, ok
}

func (d *mapDirectory) RoleName(_ context.Context, _, roleID string) (string, bool) {
	name, ok := d.roles[roleID]
	return name, ok
}

func TestResolveMentions(t *testing.T) {
	t.Parallel()
	r := NewResolver(&mapDirectory{
		members:  map[string]string{"111": "Alice"},
		channels: map[string]string{"222": "general"},
		roles:    map[string]string{"333": "admins"},
	})

	got := r.Resolve(context.Background(), "g1", "<@111> says hi in <#222>, ping <@&333>")
	want := "@Alice says hi in #general, ping @admins"
	if got != want {
		t.Errorf("Resolve:\ngot  %q\nwant %q", got, want)
	}
}

func TestResolveNicknameForm(t *testing.T) {
	t.Parallel()
	r := NewResolver(&mapDirectory{members: map[string]string{"111": "Alice"}})
	if got := r.Resolve(context.Background(), "g1", "<@!111> hello"); got != "@Alice hello" {
		t.Errorf("nickname mention form: got %q", got)
	}
}

func TestResolveLeavesUnresolvableTokens(t *testing.T) {
	t.Parallel()
	r := NewResolver(&mapDirectory{})

	text := "<@999> in <#888> with <@&777>"
	if got := r.Resolve(context.Background(), "g1", text); got != text {
		t.Errorf("unresolvable tokens must stay untouched: got %q", got)
	}
}

func TestResolveCustomEmoji(t *testing.T) {
	t.Parallel()
	r := NewResolver(&mapDirectory{})

	if got := r.Resolve(context.Background(), "", "nice <:thumbsup:123456>!"); got != "nice :thumbsup:!" {
		t.Errorf("emoji: got %q", got)
	}
	// Animated emoji carry an "a" prefix.
	if got := r.Resolve(context.Background(), "", "<a:party:42>"); got != ":party:" {
		t.Errorf("animated emoji: got %q", got)
	}
}

func TestResolvePlainTextUntouched(t *testing.T) {
	t.Parallel()
	r := NewResolver(&mapDirectory{})
	text := "just text with an email@example.com and <notatoken>"
	if got := r.Resolve(context.Background(), "g1", text); got != text {
		t.Errorf("plain text changed: %q", got)
	}
}
