// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 150 * time.Millisecond

// Watch reloads the agents file whenever it changes on disk, until ctx is
// done. The parent directory is watched so that atomic replacements are seen.
// A file that fails to parse is logged and the current agents are kept.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	if r.path == "" {
		return errors.New("agents registry has no file to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(r.path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go r.watchLoop(ctx, watcher, abs, debounce)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration) {
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn().Err(err).Msg("agents watcher error")

		case <-timer.C:
			r.reload()
		}
	}
}

// reload re-reads the file and publishes it when it differs from memory.
func (r *Registry) reload() {
	agents, err := LoadFile(r.path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", r.path).Msg("agents file not reloaded")
		return
	}

	r.mu.RLock()
	same := reflect.DeepEqual(agents, r.agents)
	r.mu.RUnlock()
	if same {
		return
	}

	r.replace(agents)
	r.log.Info().Str("path", r.path).Int("agents", len(agents)).Msg("agents reloaded")
}
