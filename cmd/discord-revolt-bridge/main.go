// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command discord-revolt-bridge is a bidirectional message relay between
// paired Discord and Revolt channels. Discord authors appear on Revolt via
// masquerade overrides and Revolt authors appear on Discord via per-channel
// webhooks, so each side sees the other's messages under the original
// author's name and avatar.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/discord-revolt-bridge/pkg/bridge"
	"github.com/aiku/discord-revolt-bridge/pkg/revolt"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	configPath     string
	generateConfig bool
	debug          bool
)

var rootCmd = &cobra.Command{
	Use:          "discord-revolt-bridge",
	Short:        "Bidirectional Discord-Revolt message relay",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.Flags().BoolVar(&generateConfig, "generate-config", false, "write an example config to the --config path and exit")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	if generateConfig {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", configPath)
		}
		if err := os.WriteFile(configPath, []byte(bridge.ExampleConfig), 0o600); err != nil {
			return fmt.Errorf("failed to write example config: %w", err)
		}
		fmt.Println("Wrote example config to", configPath)
		return nil
	}

	log := newLogger(debug)
	cfg, err := bridge.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	guard := bridge.NewLoopGuard()
	cache := bridge.NewLinkCache(cfg.CacheSize)
	pairs, err := bridge.NewPairingTable(cfg.Discord.ChannelIDs, cfg.Revolt.ChannelIDs)
	if err != nil {
		return err
	}
	transformer := bridge.NewTransformer(cache, cfg.ReplyFallback, log)
	attachments := bridge.NewAttachmentRelay(&http.Client{Timeout: 60 * time.Second}, cfg.MaxAttachmentBytes, log)

	var notifier *bridge.Notifier
	if cfg.NotifyStorePath != "" {
		notifier, err = bridge.NewNotifier(cfg.NotifyStorePath, log)
		if err != nil {
			return err
		}
	}

	discord, err := bridge.NewDiscordClient(cfg.Discord.Token, cfg.Discord.WebhookName, cfg.Discord.ChannelIDs, guard, log)
	if err != nil {
		return err
	}

	api := revolt.NewClient(cfg.Revolt.Token, cfg.Revolt.APIURL, cfg.Revolt.AutumnURL, log)
	gw := revolt.NewGateway(cfg.Revolt.Token, cfg.Revolt.WSURL, log)
	rev := bridge.NewRevoltClient(api, gw, cfg.Revolt.ChannelIDs, guard, log)

	if err := rev.Connect(ctx); err != nil {
		return err
	}
	if err := discord.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := discord.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing Discord session")
		}
	}()

	if notifier != nil {
		notifier.SetSender(bridge.PlatformDiscord, discord)
		notifier.SetSender(bridge.PlatformRevolt, rev)
	}

	engine := bridge.NewEngine(log, pairs, cache, guard, transformer, attachments, notifier,
		discord.Port(), rev.Port())

	go rev.Run(ctx)

	log.Info().Str("version", Version).Int("channel_pairs", pairs.Pairs()).Msg("Bridge running")
	engine.Run(ctx)
	log.Info().Msg("Shutdown complete")
	return nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}
	log := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	exzerolog.SetupDefaults(&log)
	return log
}
