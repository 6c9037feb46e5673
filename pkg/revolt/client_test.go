// Copyright 2024-2026 Aiku AI

package revolt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("bot-token", srv.URL, srv.URL+"/autumn", zerolog.Nop())
	c.HTTP = srv.Client()
	return c
}

func TestGetSelf(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Bot-Token"); got != "bot-token" {
			t.Errorf("X-Bot-Token: %q", got)
		}
		_, _ = w.Write([]byte(`{"_id":"bot1","username":"bridge","display_name":"Bridge Bot"}`))
	}))

	user, err := c.GetSelf(context.Background())
	if err != nil {
		t.Fatalf("GetSelf: %v", err)
	}
	if user.ID != "bot1" || user.Name() != "Bridge Bot" {
		t.Errorf("user: %+v", user)
	}
}

func TestSendMessageMasquerade(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/channels/ch1/messages" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if req.Content != "hello" || req.Nonce == "" {
			t.Errorf("request: %+v", req)
		}
		if req.Masquerade == nil || req.Masquerade.Name != "Alice" {
			t.Errorf("masquerade: %+v", req.Masquerade)
		}
		if len(req.Replies) != 1 || req.Replies[0].ID != "orig" || req.Replies[0].Mention {
			t.Errorf("replies: %+v", req.Replies)
		}
		_, _ = w.Write([]byte(`{"_id":"m1","channel":"ch1","author":"bot1","content":"hello"}`))
	}))

	msg, err := c.SendMessage(context.Background(), "ch1", &SendMessageRequest{
		Content:    "hello",
		Nonce:      "n1",
		Replies:    []Reply{{ID: "orig"}},
		Masquerade: &Masquerade{Name: "Alice", Avatar: "https://cdn/a.png"},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID != "m1" {
		t.Errorf("message ID: %q", msg.ID)
	}
}

func TestDeleteMessageNotFound(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	err := c.DeleteMessage(context.Background(), "ch1", "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRateLimitRetry(t *testing.T) {
	t.Parallel()
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"_id":"u1","username":"alice"}`))
	}))

	user, err := c.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if attempts != 2 || user.Username != "alice" {
		t.Errorf("attempts %d, user %+v", attempts, user)
	}
}

func TestAPIErrorSurfacesBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"type":"MissingPermission"}`))
	}))

	_, err := c.GetChannel(context.Background(), "ch1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("status: %d", apiErr.Status)
	}
}

func TestFileURL(t *testing.T) {
	t.Parallel()
	c := NewClient("tok", "https://api.example", "https://autumn.example", zerolog.Nop())

	cases := []struct {
		name string
		file *File
		want string
	}{
		{"nil file", nil, ""},
		{"empty ID", &File{}, ""},
		{"attachment", &File{ID: "f1", Tag: "attachments", Filename: "pic.png"},
			"https://autumn.example/attachments/f1/pic.png"},
		{"default tag", &File{ID: "f2", Filename: "a.txt"},
			"https://autumn.example/attachments/f2/a.txt"},
		{"avatar without filename", &File{ID: "f3", Tag: "avatars"},
			"https://autumn.example/avatars/f3"},
	}
	for _, tc := range cases {
		if got := c.FileURL(tc.file); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestUserName(t *testing.T) {
	t.Parallel()
	if got := (&User{Username: "alice"}).Name(); got != "alice" {
		t.Errorf("username fallback: %q", got)
	}
	if got := (&User{Username: "alice", DisplayName: "Alice W"}).Name(); got != "Alice W" {
		t.Errorf("display name preferred: %q", got)
	}
	var nilUser *User
	if got := nilUser.Name(); got != "" {
		t.Errorf("nil user: %q", got)
	}
}
