package fitfile

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IsFITFile reports whether path has a .fit extension
func IsFITFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".fit")
}

// Watcher reports FIT files created or rewritten under a directory tree
// once they have been quiet for the debounce period. Devices copy files
// in several writes, so a file is handed over only after the last one.
type Watcher struct {
	onReady  func(paths []string)
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
	logger   *slog.Logger
}

// NewWatcher creates a watcher that calls onReady with settled FIT files
func NewWatcher(debounce time.Duration, onReady func(paths []string), logger *slog.Logger) (*Watcher, error) {
	if onReady == nil {
		return nil, fmt.Errorf("onReady callback is nil: %w", os.ErrInvalid)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		onReady:  onReady,
		watcher:  fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
		logger:   logger,
	}, nil
}

// WatchRecursive adds root and all its subdirectories. It returns the
// number of directories watched and the number that could not be added.
func (w *Watcher) WatchRecursive(root string) (watched int, unwatched int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			if addErr := w.watcher.Add(path); addErr != nil {
				unwatched++
			} else {
				watched++
			}
		}
		return nil
	})
	return watched, unwatched, err
}

// Start begins processing file events in a goroutine
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for it to finish
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent watches new directories and records FIT file changes
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 && w.watchIfDir(event.Name) {
		return
	}
	if !IsFITFile(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = w.now()
	w.mu.Unlock()
}

func (w *Watcher) watchIfDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_ = w.watcher.Add(path)
	return true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	now := w.now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(ready) > 0 {
		w.logger.Debug("fit files settled", "count", len(ready))
		w.onReady(ready)
	}
}
