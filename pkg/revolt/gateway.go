// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package revolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultWSURL is the public Revolt events endpoint.
const DefaultWSURL = "wss://ws.revolt.chat"

const (
	heartbeatInterval = 20 * time.Second
	reconnectDelay    = 5 * time.Second
	// readyTimeout is how long to wait for Authenticated/Ready after
	// connecting before assuming the handshake silently stalled.
	readyTimeout = 30 * time.Second
	// silenceTimeout is how long a connected socket may stay silent
	// (no events, no pongs) before it is assumed dead.
	silenceTimeout = 5 * time.Minute
	watchdogTick   = 20 * time.Second
)

// EventType identifies a gateway event the bridge cares about.
type EventType string

const (
	EventReady         EventType = "Ready"
	EventMessage       EventType = "Message"
	EventMessageDelete EventType = "MessageDelete"
)

// GatewayEvent is a decoded gateway event. Exactly one payload field is set
// depending on Type.
type GatewayEvent struct {
	Type EventType

	// Ready
	Users []*User

	// Message
	Message *Message

	// MessageDelete
	MessageID string
	ChannelID string
}

// wsEnvelope is the raw wire shape shared by all gateway frames.
type wsEnvelope struct {
	Type    string  `json:"type"`
	Error   string  `json:"error,omitempty"`
	Users   []*User `json:"users,omitempty"`
	ID      string  `json:"id,omitempty"`
	Channel string  `json:"channel,omitempty"`
}

// Gateway maintains the Revolt WebSocket connection, authenticates,
// heartbeats, and delivers decoded events on a channel. A watchdog forces a
// reconnect when the handshake stalls or the connection goes silent.
type Gateway struct {
	Token string
	WSURL string

	events    chan *GatewayEvent
	log       zerolog.Logger
	lastEvent atomic.Int64 // unix nano of the last received frame
	ready     atomic.Bool
}

// NewGateway creates a gateway. Call Run to connect.
func NewGateway(token, wsURL string, log zerolog.Logger) *Gateway {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &Gateway{
		Token:  token,
		WSURL:  wsURL,
		events: make(chan *GatewayEvent, 64),
		log:    log.With().Str("component", "revolt_gateway").Logger(),
	}
}

// Events returns the channel on which decoded events are delivered. The
// channel is closed when Run returns.
func (g *Gateway) Events() <-chan *GatewayEvent {
	return g.events
}

// Run connects and re-connects until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	defer close(g.events)
	for {
		g.log.Info().Str("ws_url", g.WSURL).Msg("Connecting to Revolt gateway")
		err := g.runOnce(ctx)
		if ctx.Err() != nil {
			g.log.Info().Msg("Gateway stopped")
			return
		}
		g.log.Warn().Err(err).Dur("delay", reconnectDelay).Msg("Gateway disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (g *Gateway) runOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, g.WSURL+"/?version=1&format=json", nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	g.ready.Store(false)
	g.lastEvent.Store(time.Now().UnixNano())

	auth, _ := json.Marshal(map[string]string{"type": "Authenticate", "token": g.Token})
	if err := conn.WriteMessage(websocket.TextMessage, auth); err != nil {
		return fmt.Errorf("authenticate failed: %w", err)
	}

	connCtx, stop := context.WithCancel(ctx)
	defer stop()
	go g.heartbeat(connCtx, conn)
	go g.watchdog(connCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		g.lastEvent.Store(time.Now().UnixNano())
		if err := g.handleFrame(ctx, data); err != nil {
			return err
		}
	}
}

func (g *Gateway) handleFrame(ctx context.Context, data []byte) error {
	var env wsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.log.Warn().Err(err).Msg("Failed to decode gateway frame")
		return nil
	}

	switch env.Type {
	case "Authenticated":
		g.ready.Store(true)
		g.log.Info().Msg("Gateway authenticated")
	case "NotFound", "InvalidSession":
		return fmt.Errorf("gateway rejected session: %s", env.Type)
	case "Error":
		return fmt.Errorf("gateway error: %s", env.Error)
	case "Ready":
		g.ready.Store(true)
		g.deliver(ctx, &GatewayEvent{Type: EventReady, Users: env.Users})
	case "Message":
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			g.log.Warn().Err(err).Msg("Failed to decode message event")
			return nil
		}
		g.deliver(ctx, &GatewayEvent{Type: EventMessage, Message: &msg})
	case "MessageDelete":
		g.deliver(ctx, &GatewayEvent{Type: EventMessageDelete, MessageID: env.ID, ChannelID: env.Channel})
	case "Pong", "Ping":
		// heartbeat traffic, lastEvent already updated
	default:
		g.log.Trace().Str("event_type", env.Type).Msg("Unhandled gateway event type")
	}
	return nil
}

func (g *Gateway) deliver(ctx context.Context, evt *GatewayEvent) {
	select {
	case g.events <- evt:
	case <-ctx.Done():
	}
}

func (g *Gateway) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	ping, _ := json.Marshal(map[string]any{"type": "Ping", "data": 0})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				g.log.Warn().Err(err).Msg("Heartbeat write failed")
				_ = conn.Close()
				return
			}
		}
	}
}

// watchdog closes the connection when the handshake never completes or the
// socket goes silent, which makes runOnce return and triggers a reconnect.
func (g *Gateway) watchdog(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(watchdogTick)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !g.ready.Load() {
				if elapsed := time.Since(start); elapsed > readyTimeout {
					g.log.Warn().Dur("elapsed", elapsed).Msg("No Ready event, forcing reconnect")
					_ = conn.Close()
					return
				}
				continue
			}
			last := time.Unix(0, g.lastEvent.Load())
			if elapsed := time.Since(last); elapsed > silenceTimeout {
				g.log.Warn().Dur("elapsed", elapsed).Msg("Connection silent, forcing reconnect")
				_ = conn.Close()
				return
			}
		}
	}
}
