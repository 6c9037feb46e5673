// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bridge relays chat messages between paired Discord and Revolt
// channels in both directions, preserving author identity on each side:
// Discord messages appear on Revolt through masquerade overrides, and Revolt
// messages appear on Discord through per-channel webhooks with custom
// usernames and avatars.
//
// # Core Types
//
// [Engine] owns the relay loop. It consumes normalized [Event] streams from
// both platform adapters, resolves channel pairings, transforms content, and
// forwards through the opposite side's [Forwarder]. Events from a single
// platform are processed strictly in arrival order.
//
// [DiscordClient] and [RevoltClient] are the platform adapters. Each one
// normalizes inbound traffic into [Event] values and implements [Forwarder]
// for outbound delivery.
//
// [LinkCache] remembers which Discord message corresponds to which Revolt
// message so that replies and deletions can be mirrored. It holds a bounded
// number of recent links and evicts the oldest first.
//
// # Echo Prevention
//
// Both adapters register the identities the bridge itself posts under
// (webhook IDs on Discord, the bot user on Revolt) with a shared [LoopGuard].
// Inbound events authored by a registered identity are dropped before any
// relay work happens, which is what keeps the two directions from feeding
// each other.
//
// # Sub-packages
//
//   - discordfmt rewrites Discord mention and emoji tokens into plain text.
//   - revoltfmt rewrites Revolt mention and emoji tokens into plain text.
package bridge
