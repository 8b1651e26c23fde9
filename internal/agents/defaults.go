// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import "github.com/RedTheFoxx/OraLLMStudio/internal/model"

// Defaults returns the built-in agents.
func Defaults() []model.Agent {
	return []model.Agent{
		{
			ID:           "general",
			Name:         "General Assistant",
			Description:  "A versatile assistant for everyday tasks",
			SystemPrompt: "You are a helpful and versatile assistant.",
			Documents:    []string{},
			Active:       true,
			ExamplePrompts: []string{
				"What are the main features of a good design system?",
				"How can I improve my productivity at work?",
				"Can you explain the concept of responsive design?",
			},
		},
		{
			ID:           "code",
			Name:         "Code Expert",
			Description:  "An expert in programming and software development",
			SystemPrompt: "You are an expert in programming and software development.",
			Documents:    []string{"coding_best_practices.md"},
			Active:       true,
			ExamplePrompts: []string{
				"What are the best practices for writing clean code?",
				"Can you explain the difference between var, let and const in JavaScript?",
				"How do I implement a binary search?",
			},
		},
		{
			ID:           "data",
			Name:         "Data Analyst",
			Description:  "Specialized in data analysis and visualization",
			SystemPrompt: "You are a data analyst specialized in data analysis and visualization.",
			Documents:    []string{"data_analysis_techniques.md", "visualization_tools.md"},
			Active:       true,
			ExamplePrompts: []string{
				"What are the most common data visualization techniques?",
				"Can you explain statistical significance?",
				"How do I run a regression analysis?",
			},
		},
	}
}
