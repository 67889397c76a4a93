package library

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/musiclite/musiclite/internal/media"
)

// Watcher reacts to files appearing in the music directory by nudging the
// refresher. Debounce lives in the scanner's own guard; overlapping events
// collapse into dropped refreshes.
type Watcher struct {
	dir       string
	refresher *Refresher
	watcher   *fsnotify.Watcher
	debug     bool
}

func NewWatcher(dir string, refresher *Refresher, debug bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			log.Printf("Failed to close watcher: %v", closeErr)
		}
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:       dir,
		refresher: refresher,
		watcher:   fsw,
		debug:     debug,
	}, nil
}

func (w *Watcher) debugLog(format string, args ...interface{}) {
	if !w.debug {
		return
	}
	log.Printf("[WATCH] "+format, args...)
}

func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if !media.IsAudioFile(event.Name) {
					continue
				}
				w.debugLog("New audio file: %s", strings.TrimPrefix(event.Name, w.dir))
				w.refresher.TriggerRefresh(ctx)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[WATCH] Watcher error: %v", err)
			}
		}
	}()
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
