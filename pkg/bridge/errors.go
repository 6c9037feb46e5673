// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import "errors"

var (
	// ErrConfiguration is a fatal startup configuration problem, such as
	// mismatched channel pairing lists. It is the only error class that
	// halts the process.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDeliveryFailed means an outbound send or delete exhausted its
	// retries. The message is dropped; there is no durable queue.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrRemoteNotFound means the target message no longer exists on the
	// destination platform.
	ErrRemoteNotFound = errors.New("remote message not found")

	// ErrAttachmentTooLarge means a fetched attachment exceeded the size
	// ceiling. The relay degrades to a fallback link.
	ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

	// ErrAttachmentFetchFailed means attachment bytes could not be
	// downloaded. The relay degrades to a fallback link.
	ErrAttachmentFetchFailed = errors.New("attachment fetch failed")
)
