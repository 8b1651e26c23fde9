// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Feedback is one vote event against a message. Records are never removed;
// the message's Vote field carries the latest one.
type Feedback struct {
	MessageID   string    `json:"message_id"`
	Vote        Vote      `json:"vote"`
	Reason      string    `json:"reason"`
	VoterName   string    `json:"voter_name,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
