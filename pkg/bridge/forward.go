// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultSendAttempts = 3
	defaultBackoff      = 1 * time.Second
)

// retryingForwarder wraps a platform Forwarder with bounded retries and
// exponential backoff. On exhaustion it surfaces ErrDeliveryFailed; there
// is no durable queue, so the caller drops the message.
type retryingForwarder struct {
	inner    Forwarder
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

func newRetryingForwarder(inner Forwarder, log zerolog.Logger) *retryingForwarder {
	return &retryingForwarder{
		inner:    inner,
		attempts: defaultSendAttempts,
		backoff:  defaultBackoff,
		log:      log,
	}
}

func (r *retryingForwarder) Send(ctx context.Context, channelID string, payload *Payload) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, r.backoff<<(attempt-1)); err != nil {
				return "", err
			}
		}
		id, err := r.inner.Send(ctx, channelID, payload)
		if err == nil {
			return id, nil
		}
		lastErr = err
		r.log.Warn().Err(err).
			Str("channel_id", channelID).
			Int("attempt", attempt+1).
			Msg("Outbound send failed")
	}
	return "", fmt.Errorf("%w: send to %s after %d attempts: %v",
		ErrDeliveryFailed, channelID, r.attempts, lastErr)
}

func (r *retryingForwarder) Delete(ctx context.Context, channelID, messageID string) error {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, r.backoff<<(attempt-1)); err != nil {
				return err
			}
		}
		err := r.inner.Delete(ctx, channelID, messageID)
		if err == nil || errors.Is(err, ErrRemoteNotFound) {
			return err
		}
		lastErr = err
		r.log.Warn().Err(err).
			Str("channel_id", channelID).
			Str("message_id", messageID).
			Int("attempt", attempt+1).
			Msg("Outbound delete failed")
	}
	return fmt.Errorf("%w: delete %s in %s after %d attempts: %v",
		ErrDeliveryFailed, messageID, channelID, r.attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
