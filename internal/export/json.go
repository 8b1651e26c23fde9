// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// JSONExporter exports the complete conversation. Options other than
// ExportedAt do not filter its output.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	Generator    string             `json:"generator"`
	ExportedAt   time.Time          `json:"exported_at"`
	Agent        *jsonAgent         `json:"agent,omitempty"`
	Conversation model.Conversation `json:"conversation"`
}

type jsonAgent struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SystemPrompt string   `json:"system_prompt"`
	Documents    []string `json:"documents"`
}

// Export encodes doc as indented JSON.
func (e *JSONExporter) Export(doc Document) ([]byte, error) {
	out := jsonDocument{
		Generator:    generator,
		ExportedAt:   e.options.exportedAt(),
		Conversation: doc.Conversation,
	}
	if doc.Agent.ID != "" {
		out.Agent = &jsonAgent{
			ID:           doc.Agent.ID,
			Name:         doc.Agent.Name,
			SystemPrompt: doc.Agent.SystemPrompt,
			Documents:    doc.Agent.Documents,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
