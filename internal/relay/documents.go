// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxContextTokens bounds the document context.
	DefaultMaxContextTokens = 4000

	// charsPerToken approximates token count from characters.
	charsPerToken = 4

	// minTruncatedChars is the smallest remainder worth a truncated document.
	minTruncatedChars = 100

	truncatedMarker = "... [TRUNCATED]"

	documentsPreamble = "The following documents are provided for reference:\n\n"
	documentsFooter   = "\n\nPlease use this information to inform your responses when relevant."
)

// ErrUnsupportedDocument is returned for file types that cannot be read as text.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// =============================================================================
// DOCUMENT LOADER
// =============================================================================

// DocumentLoader reads agent documents from a base directory.
type DocumentLoader struct {
	dir       string
	maxTokens int
	log       zerolog.Logger
}

// NewDocumentLoader creates a loader rooted at dir. An empty dir resolves
// paths against the working directory.
func NewDocumentLoader(dir string, maxTokens int, log zerolog.Logger) *DocumentLoader {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &DocumentLoader{dir: dir, maxTokens: maxTokens, log: log}
}

// resolve maps a requested path into the base directory.
func (l *DocumentLoader) resolve(name string) (string, error) {
	if l.dir == "" {
		return filepath.Clean(name), nil
	}
	full := filepath.Join(l.dir, filepath.Clean("/"+name))
	rel, err := filepath.Rel(l.dir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("document %q escapes the documents directory", name)
	}
	return full, nil
}

// Extract returns the text content of one document. JSON is pretty-printed.
func (l *DocumentLoader) Extract(name string) (string, error) {
	path, err := l.resolve(name)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".json":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if ext != ".json" {
		return string(data), nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON document: %w", err)
	}
	return buf.String(), nil
}

// Context formats the readable documents into one block that fits the token
// budget. Unreadable documents are skipped and logged. It returns the block
// and the number of documents included.
func (l *DocumentLoader) Context(names []string) (string, int) {
	limit := l.maxTokens * charsPerToken

	var b strings.Builder
	included := 0
	for i, name := range names {
		content, err := l.Extract(name)
		if err != nil {
			l.log.Warn().Err(err).Str("document", name).Msg("skipping document")
			continue
		}

		entry := fmt.Sprintf("\n--- DOCUMENT %d ---\n%s", i+1, content)
		remaining := limit - b.Len()
		if len(entry) <= remaining {
			b.WriteString(entry)
			included++
			continue
		}
		if remaining > minTruncatedChars {
			cut := remaining - len(truncatedMarker)
			b.WriteString(truncateBytes(entry, cut))
			b.WriteString(truncatedMarker)
			included++
		}
		break
	}
	return b.String(), included
}

// SystemPrompt appends the document block to base. With no readable
// documents, base is returned unchanged.
func (l *DocumentLoader) SystemPrompt(base string, names []string) (string, int) {
	if len(names) == 0 {
		return base, 0
	}
	ctx, n := l.Context(names)
	if n == 0 {
		return base, 0
	}
	return base + "\n\n" + documentsPreamble + ctx + documentsFooter, n
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
