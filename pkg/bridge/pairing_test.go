// Copyright 2024-2026 Aiku AI

package bridge

import (
	"errors"
	"testing"
)

func TestPairingTableResolve(t *testing.T) {
	t.Parallel()
	p, err := NewPairingTable([]string{"d1", "d2"}, []string{"r1", "r2"})
	if err != nil {
		t.Fatalf("NewPairingTable: %v", err)
	}

	if got, ok := p.Resolve("d1"); !ok || got != "r1" {
		t.Errorf("Resolve(d1): got %q, %v", got, ok)
	}
	if got, ok := p.Resolve("r2"); !ok || got != "d2" {
		t.Errorf("Resolve(r2): got %q, %v", got, ok)
	}
	if _, ok := p.Resolve("unknown"); ok {
		t.Error("unknown channel should not resolve")
	}
	if p.Pairs() != 2 {
		t.Errorf("Pairs: got %d, want 2", p.Pairs())
	}
}

func TestPairingTableRejectsBadInput(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		discord []string
		revolt  []string
	}{
		{"length mismatch", []string{"d1", "d2"}, []string{"r1"}},
		{"empty lists", nil, nil},
		{"empty ID", []string{"d1", ""}, []string{"r1", "r2"}},
		{"duplicate discord ID", []string{"d1", "d1"}, []string{"r1", "r2"}},
		{"duplicate revolt ID", []string{"d1", "d2"}, []string{"r1", "r1"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewPairingTable(tc.discord, tc.revolt)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}
