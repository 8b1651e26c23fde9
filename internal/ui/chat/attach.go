// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
)

// maxAttachmentSize caps attached files.
const maxAttachmentSize = 10 << 20

// LoadAttachment describes the file at path. Only metadata is kept; the
// content never leaves the machine.
func LoadAttachment(path string) (*model.Attachment, error) {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot attach %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot attach %s: is a directory", path)
	}
	if info.Size() > maxAttachmentSize {
		return nil, fmt.Errorf("cannot attach %s: larger than %s", path, formatSize(maxAttachmentSize))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return &model.Attachment{
		Name:      filepath.Base(path),
		Path:      abs,
		Size:      info.Size(),
		MediaType: mediaType,
	}, nil
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
