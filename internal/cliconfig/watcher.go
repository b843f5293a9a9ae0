package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/gateship/pkg/log"
)

// Watcher monitors the config file via fsnotify and rotates the delivery
// credential without restarting the pipeline. It is best effort: every
// failure is logged and ignored.
type Watcher struct {
	path    string
	logger  log.Logger
	onToken func(token string)

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for the config file at path. onToken is called
// with the new token whenever a reload yields one; it must be safe to call
// from the watcher goroutine.
func NewWatcher(path string, logger log.Logger, onToken func(token string)) *Watcher {
	return &Watcher{
		path:    path,
		logger:  logger,
		onToken: onToken,
	}
}

// Run watches until ctx is canceled. Run it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher: failed to create watcher", log.Err(err))
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which would drop a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("config watcher: failed to watch config directory", log.Err(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher: error", log.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.reload)
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config watcher: reload failed", log.Err(err))
		return
	}
	if fc.Token == "" {
		return
	}
	w.onToken(fc.Token)
	w.logger.Info("config watcher: delivery credential updated from config file")
}
