// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat backend.
//
// One request is issued per turn, either streaming (POST /chat/stream, the
// live body is handed back undecoded) or buffered (POST /chat, the JSON reply
// is decoded). A health probe (GET /health) reports reachability. Failures
// are reported as *TransportError and are never retried.
//
// Example:
//
//	client := backend.NewClient()
//	res, err := client.SendTurn(ctx, conv.Messages, agent, 0.2, true)
//	if err != nil {
//	    return err
//	}
//	defer res.Stream.Close()
//	stream.Consume(ctx, res.Stream, handler)
package backend
