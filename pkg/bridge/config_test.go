// Copyright 2024-2026 Aiku AI

package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
discord:
    token: dtok
    channel_ids: ["d1", "d2"]
revolt:
    token: rtok
    channel_ids: ["r1", "r2"]
`

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.CacheSize != DefaultCacheSize {
		t.Errorf("CacheSize: got %d, want %d", cfg.CacheSize, DefaultCacheSize)
	}
	if cfg.MaxAttachmentBytes != DefaultMaxAttachmentBytes {
		t.Errorf("MaxAttachmentBytes: got %d, want %d", cfg.MaxAttachmentBytes, DefaultMaxAttachmentBytes)
	}
	if cfg.ReplyFallback != ReplyFallbackQuote {
		t.Errorf("ReplyFallback: got %q, want %q", cfg.ReplyFallback, ReplyFallbackQuote)
	}
	if cfg.Discord.WebhookName != "Revolt Bridge" {
		t.Errorf("WebhookName: got %q", cfg.Discord.WebhookName)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(writeConfig(t, `
discord:
    token: dtok
    channel_ids: ["d1"]
    webhook_name: My Bridge
revolt:
    token: rtok
    channel_ids: ["r1"]
cache_size: 50
max_attachment_bytes: 1024
reply_fallback: silent
notify_store_path: /tmp/notified.json
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.CacheSize != 50 || cfg.MaxAttachmentBytes != 1024 {
		t.Errorf("limits: %d / %d", cfg.CacheSize, cfg.MaxAttachmentBytes)
	}
	if cfg.ReplyFallback != ReplyFallbackSilent {
		t.Errorf("ReplyFallback: got %q", cfg.ReplyFallback)
	}
	if cfg.Discord.WebhookName != "My Bridge" {
		t.Errorf("WebhookName: got %q", cfg.Discord.WebhookName)
	}
	if cfg.NotifyStorePath != "/tmp/notified.json" {
		t.Errorf("NotifyStorePath: got %q", cfg.NotifyStorePath)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		content string
	}{
		{"missing discord token", `
discord:
    channel_ids: ["d1"]
revolt:
    token: rtok
    channel_ids: ["r1"]
`},
		{"missing revolt token", `
discord:
    token: dtok
    channel_ids: ["d1"]
revolt:
    channel_ids: ["r1"]
`},
		{"channel list mismatch", `
discord:
    token: dtok
    channel_ids: ["d1", "d2"]
revolt:
    token: rtok
    channel_ids: ["r1"]
`},
		{"no pairs", `
discord:
    token: dtok
revolt:
    token: rtok
`},
		{"bad reply fallback", `
discord:
    token: dtok
    channel_ids: ["d1"]
revolt:
    token: rtok
    channel_ids: ["r1"]
reply_fallback: loud
`},
		{"malformed yaml", `discord: [`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeConfig(t, tc.content))
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestExampleConfigIsValidAfterFillingTokens(t *testing.T) {
	t.Parallel()
	// The shipped example must stay parseable; tokens and channels are the
	// only things a user has to fill in.
	path := writeConfig(t, ExampleConfig)
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("empty example should fail validation with ErrConfiguration, got %v", err)
	}
}
