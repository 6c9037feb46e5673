// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import "fmt"

// PairingTable is the static bidirectional mapping between Discord and
// Revolt channel IDs. Built once at startup, immutable afterwards.
type PairingTable struct {
	byID  map[string]string
	pairs int
}

// NewPairingTable builds the table from two equal-length ordered lists.
// The nth Discord ID is paired with the nth Revolt ID.
func NewPairingTable(discordIDs, revoltIDs []string) (*PairingTable, error) {
	if len(discordIDs) != len(revoltIDs) {
		return nil, fmt.Errorf("%w: channel list length mismatch: %d discord IDs vs %d revolt IDs",
			ErrConfiguration, len(discordIDs), len(revoltIDs))
	}
	if len(discordIDs) == 0 {
		return nil, fmt.Errorf("%w: no channel pairs configured", ErrConfiguration)
	}

	byID := make(map[string]string, len(discordIDs)*2)
	for i := range discordIDs {
		d, r := discordIDs[i], revoltIDs[i]
		if d == "" || r == "" {
			return nil, fmt.Errorf("%w: empty channel ID in pair %d", ErrConfiguration, i+1)
		}
		if _, ok := byID[d]; ok {
			return nil, fmt.Errorf("%w: channel %s appears in more than one pairing", ErrConfiguration, d)
		}
		if _, ok := byID[r]; ok {
			return nil, fmt.Errorf("%w: channel %s appears in more than one pairing", ErrConfiguration, r)
		}
		byID[d] = r
		byID[r] = d
	}
	return &PairingTable{byID: byID, pairs: len(discordIDs)}, nil
}

// Resolve returns the paired channel ID, or false if the channel is not
// part of any pairing.
func (p *PairingTable) Resolve(channelID string) (string, bool) {
	paired, ok := p.byID[channelID]
	return paired, ok
}

// Pairs returns the number of configured channel pairs.
func (p *PairingTable) Pairs() int {
	return p.pairs
}
