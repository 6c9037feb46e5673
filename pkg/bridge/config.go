// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// DiscordConfig is the Discord side of the bridge configuration.
type DiscordConfig struct {
	Token string `yaml:"token"`
	// ChannelIDs pairs with RevoltConfig.ChannelIDs by position.
	ChannelIDs []string `yaml:"channel_ids"`
	// WebhookName is the deterministic name used to create or reuse the
	// per-channel webhook.
	WebhookName string `yaml:"webhook_name"`
}

// RevoltConfig is the Revolt side of the bridge configuration.
type RevoltConfig struct {
	Token      string   `yaml:"token"`
	APIURL     string   `yaml:"api_url"`
	WSURL      string   `yaml:"ws_url"`
	AutumnURL  string   `yaml:"autumn_url"`
	ChannelIDs []string `yaml:"channel_ids"`
}

// Config is the full bridge configuration.
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Revolt  RevoltConfig  `yaml:"revolt"`

	// CacheSize is the reply link cache capacity.
	CacheSize int `yaml:"cache_size"`
	// MaxAttachmentBytes is the inline re-upload ceiling (inclusive).
	MaxAttachmentBytes int64 `yaml:"max_attachment_bytes"`
	// ReplyFallback is "quote" or "silent".
	ReplyFallback ReplyFallback `yaml:"reply_fallback"`

	// NotifyStorePath points at the notified-users JSON file. Empty
	// disables first-use welcome DMs.
	NotifyStorePath string `yaml:"notify_store_path"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.MaxAttachmentBytes <= 0 {
		c.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	}
	if c.ReplyFallback == "" {
		c.ReplyFallback = ReplyFallbackQuote
	}
	if c.Discord.WebhookName == "" {
		c.Discord.WebhookName = "Revolt Bridge"
	}
}

// Validate fails fast on anything that would leave the bridge unable to
// run. All failures wrap ErrConfiguration.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("%w: discord.token is required", ErrConfiguration)
	}
	if c.Revolt.Token == "" {
		return fmt.Errorf("%w: revolt.token is required", ErrConfiguration)
	}
	if c.ReplyFallback != ReplyFallbackQuote && c.ReplyFallback != ReplyFallbackSilent {
		return fmt.Errorf("%w: reply_fallback must be %q or %q, got %q",
			ErrConfiguration, ReplyFallbackQuote, ReplyFallbackSilent, c.ReplyFallback)
	}
	// Pairing list validation (length, duplicates, empties) happens in
	// NewPairingTable; run it here so a bad config fails before connecting.
	if _, err := NewPairingTable(c.Discord.ChannelIDs, c.Revolt.ChannelIDs); err != nil {
		return err
	}
	return nil
}
