package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

// DefaultDebounce groups bursts of file events into one rebuild
const DefaultDebounce = 2 * time.Second

var watchedExtensions = map[string]bool{".json": true, ".txt": true, ".md": true, ".html": true, ".htm": true}

// WatchDirs returns the directories holding the metadata file and every
// record's text file
func WatchDirs(metadataFile string, records []model.CorpusRecord) []string {
	baseDir := filepath.Dir(metadataFile)
	seen := map[string]bool{}
	var dirs []string

	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	add(baseDir)
	for _, r := range records {
		add(filepath.Dir(ResolvePath(baseDir, r.TextFile)))
	}
	return dirs
}

// Watch calls rebuild whenever a corpus file under dirs is created, written,
// renamed or removed, once per debounce window. It blocks until ctx is done.
// Rebuild errors are logged and watching continues.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, rebuild func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Info("watching %s", dir)
	}

	// Stopped until the first event; Reset needs no draining since Go 1.23
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watchedExtensions[filepath.Ext(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("corpus change: %s", event)
			timer.Reset(debounce)

		case <-timer.C:
			if err := rebuild(ctx); err != nil {
				logger.Warn("corpus rebuild failed: %v", err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}
