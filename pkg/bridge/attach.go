// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxAttachmentBytes is the inline re-upload ceiling (25 MiB,
// Discord's upload limit). The boundary is inclusive: a file of exactly
// this size is still re-uploaded.
const DefaultMaxAttachmentBytes = 25 * 1024 * 1024

// AttachmentRelay fetches inbound attachment bytes and decides between
// inline re-upload and fallback link based on the size ceiling and the
// destination's capabilities. It holds at most one file in memory per
// relayed attachment, bounded by MaxBytes.
type AttachmentRelay struct {
	client   *http.Client
	maxBytes int64
	log      zerolog.Logger
}

func NewAttachmentRelay(client *http.Client, maxBytes int64, log zerolog.Logger) *AttachmentRelay {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &AttachmentRelay{
		client:   client,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "attachment_relay").Logger(),
	}
}

// Relay processes the event's attachments into payload. Inline-capable
// destinations get fetched file data; everything that cannot be re-uploaded
// (link-only destination, oversize, fetch failure) degrades to the source
// URL appended to the message text. Failures are never fatal to the relay.
func (a *AttachmentRelay) Relay(ctx context.Context, attachments []Attachment, payload *Payload, caps Capabilities) {
	for _, att := range attachments {
		if !caps.InlineUploads {
			appendLink(payload, att.URL)
			continue
		}

		file, err := a.fetch(ctx, att)
		if err != nil {
			a.log.Warn().Err(err).
				Str("url", att.URL).
				Int64("size", att.Size).
				Msg("Attachment not re-uploaded, degrading to link")
			appendLink(payload, att.URL)
			continue
		}
		payload.Files = append(payload.Files, file)
	}
}

// fetch downloads the attachment into memory, enforcing the size ceiling
// both on the advertised size and the actual body.
func (a *AttachmentRelay) fetch(ctx context.Context, att Attachment) (*File, error) {
	if att.Size > a.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrAttachmentTooLarge, att.Size, a.maxBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttachmentFetchFailed, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttachmentFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrAttachmentFetchFailed, resp.StatusCode)
	}
	if resp.ContentLength > a.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrAttachmentTooLarge, resp.ContentLength, a.maxBytes)
	}

	// Read one byte past the ceiling to distinguish "exactly at the limit"
	// (allowed) from "over the limit" (degrade to link).
	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAttachmentFetchFailed, err)
	}
	if int64(len(data)) > a.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrAttachmentTooLarge, a.maxBytes)
	}

	name := att.Filename
	if name == "" {
		name = "file"
	}
	return &File{
		Name:        name,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func appendLink(payload *Payload, url string) {
	if url == "" {
		return
	}
	if payload.Text == "" {
		payload.Text = url
		return
	}
	payload.Text += "\n" + url
}
