// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"fmt"
	"strings"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// cannedReplies holds the simulated answers of the built-in agents, by name.
var cannedReplies = map[string]string{
	"General Assistant": "As a helpful assistant, I am here to help with any question or task. " +
		"How can I help you today?",
	"Code Expert": "As a coding expert, I can help with programming questions, code reviews " +
		"and best practices. Which coding topic would you like to discuss?",
	"Data Analyst": "As a data analyst, I can help with data analysis, visualization and " +
		"statistical concepts. What data question do you have?",
}

// SimulatedReply returns the canned reply used when no backend is configured.
// The built-in agents answer with their own introduction; any other agent
// echoes the user text.
func SimulatedReply(agent model.Agent, userText string) string {
	if reply, ok := cannedReplies[agent.Name]; ok {
		return reply
	}
	quoted := strings.TrimSpace(userText)
	if quoted == "" {
		quoted = "(attachment)"
	}
	name := agent.Name
	if name == "" {
		name = "the assistant"
	}
	return fmt.Sprintf("You said: %s. This is a simulated streaming reply from %s. "+
		"Configure a backend URL to receive real answers.", quoted, name)
}

// SimulatedTokens splits reply on whitespace. Every token after the first
// carries a leading space so that the concatenation reads naturally.
func SimulatedTokens(reply string) []string {
	words := strings.Fields(reply)
	for i := 1; i < len(words); i++ {
		words[i] = " " + words[i]
	}
	return words
}
