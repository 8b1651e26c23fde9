// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the server-sent-event byte stream returned by the
// chat backend into content deltas.
//
// The wire format is a sequence of frames separated by a blank line:
//
//	data: {"content": "Hel"}
//
//	data: {"content": "lo"}
//
//	data: {"content": "[DONE]"}
//
// Consume drives a Handler: OnDelta once per non-empty content frame in
// arrival order, then exactly one of OnComplete or OnError. Frames that are
// not valid JSON or lack the expected shape are dropped without surfacing.
package stream
