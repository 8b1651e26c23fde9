// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/util"
)

const generator = "orallmstudio"

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown. Empty conversations are an
// error since there is nothing to read.
func (e *MarkdownExporter) Export(doc Document) ([]byte, error) {
	conv := doc.Conversation
	if len(conv.Messages) == 0 {
		return nil, errors.New("conversation has no messages")
	}

	agentName := doc.Agent.Name
	if agentName == "" {
		agentName = "(deleted agent)"
	}
	exported := e.options.exportedAt()

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(conv.Title))
		fmt.Fprintf(&sb, "agent: %s\n", escapeYAML(agentName))
		if !conv.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", exported.Format(time.RFC3339))
		fmt.Fprintf(&sb, "generator: %s\n", generator)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(conv.Title))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		fmt.Fprintf(&sb, "- **Agent**: %s\n", escapeMarkdown(agentName))
		if doc.Agent.Description != "" {
			fmt.Fprintf(&sb, "- **Description**: %s\n", doc.Agent.Description)
		}
		if len(doc.Agent.Documents) > 0 {
			fmt.Fprintf(&sb, "- **Documents**: %s\n", strings.Join(doc.Agent.Documents, ", "))
		}
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(conv.Messages))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range conv.Messages {
		e.writeMessage(&sb, msg, agentName)
		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if e.options.IncludeFeedback && len(conv.Feedback) > 0 {
		sb.WriteString("\n## Feedback\n\n")
		for _, f := range conv.Feedback {
			voter := f.VoterName
			if voter == "" {
				voter = "anonymous"
			}
			line := fmt.Sprintf("- %s by %s on message `%s`", f.Vote.Symbol(), voter, shortID(f.MessageID))
			if f.Reason != "" {
				line += ": " + util.SingleLine(f.Reason)
			}
			sb.WriteString(line + "\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from OraLLM Studio on %s*\n", exported.Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

func (e *MarkdownExporter) writeMessage(sb *strings.Builder, msg model.Message, agentName string) {
	label := "You"
	if msg.Role == model.RoleAssistant {
		label = agentName
	}
	if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
		fmt.Fprintf(sb, "### %s <sub>%s</sub>\n\n", escapeMarkdown(label), msg.CreatedAt.Format("15:04:05"))
	} else {
		fmt.Fprintf(sb, "### %s\n\n", escapeMarkdown(label))
	}

	if msg.Attachment != nil {
		fmt.Fprintf(sb, "> Attachment: `%s` (%s)\n\n", msg.Attachment.Name, formatSize(msg.Attachment.Size))
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		content = "*(no content)*"
	}
	sb.WriteString(content)
	sb.WriteString("\n\n")

	if msg.Vote != model.VoteNone {
		fmt.Fprintf(sb, "<sub>Rating: %s</sub>\n\n", msg.Vote.Symbol())
	}
	if len(msg.Sources) > 0 {
		sb.WriteString("**Sources**:\n\n")
		for i, src := range msg.Sources {
			fmt.Fprintf(sb, "%d. %s\n", i+1, src)
		}
		sb.WriteString("\n")
	}
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that break headings and titles.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes values that contain YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
