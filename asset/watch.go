package asset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces rapid write bursts into a single reload.
const debounceDelay = 250 * time.Millisecond

// Watch starts a filesystem watcher over the directories of every path
// currently registered with the store. Writes to a registered path
// trigger a debounced reload, which publishes a fresh Script under the
// existing handle. Watch returns once the watcher is running; it stops
// when ctx is canceled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("asset: create watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for _, p := range s.paths() {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("asset: watch %s: %w", dir, err)
		}
	}

	go s.watchLoop(ctx, watcher)
	return nil
}

// watchLoop reacts to filesystem events until the context is canceled.
func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.mu.RLock()
			h, known := s.byPath[event.Name]
			s.mu.RUnlock()
			if !known {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounceDelay, func() {
				s.log.Infof("change detected, reloading %s", path)
				go s.load(h, path)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Errorf("watcher error: %v", err)
		}
	}
}
