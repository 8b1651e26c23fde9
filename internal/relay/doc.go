// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay implements the chat backend the client talks to.
//
// Endpoints (mounted under /api):
//   - POST /chat         - buffered reply {message, model}
//   - POST /chat/stream  - SSE frames data: {"content": "..."} ending with [DONE]
//   - GET  /health       - {status, message}
//
// Replies come from a Provider: a local echo, an OpenRouter upstream or
// Google Gemini. Agent documents named in a request are read from the
// documents directory and appended to the system prompt.
package relay
