package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay absorbs editors that write a file in several steps.
const debounceDelay = 100 * time.Millisecond

// reloadFunc reloads after a change and returns the files to watch next.
// On error the previous watch list is kept.
type reloadFunc func(ctx context.Context) ([]string, error)

// watchFiles calls reload whenever one of files changes, until ctx is done.
func watchFiles(ctx context.Context, logger *zap.Logger, files []string, reload reloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool)
	update := func(files []string) {
		next := make(map[string]bool, len(files))
		for _, file := range files {
			next[file] = true
		}
		// Files no longer included.
		for file := range watched {
			if !next[file] {
				_ = watcher.Remove(file)
			}
		}
		// Re-add everything so files recreated by atomic saves are caught.
		for file := range next {
			if err := watcher.Add(file); err != nil {
				logger.Warn("failed to watch file", zap.String("path", file), zap.Error(err))
			}
		}
		watched = next
	}
	update(files)

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Remove and Rename are common in atomic saves.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(debounceDelay)
			fire = debounce.C

		case <-fire:
			fire = nil
			next, err := reload(ctx)
			if err != nil {
				logger.Info("reload failed", zap.Error(err))
				update(keys(watched))
				continue
			}
			update(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
