package file

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"projector/internal/domain"
	"projector/internal/hooks"
	"projector/pkg/logging"
)

// DefaultDebounce is how long the watcher waits for the directory to settle
// before reloading it.
const DefaultDebounce = 500 * time.Millisecond

// Publisher receives the events derived from file changes.
type Publisher interface {
	Publish(event hooks.Event, payload domain.Payload)
}

// Watcher reloads the store when its files change and publishes the
// resulting entity events.
type Watcher struct {
	mu sync.Mutex

	store     *Store
	publisher Publisher
	debounce  time.Duration

	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for s. A zero debounce uses DefaultDebounce.
func NewWatcher(s *Store, publisher Publisher, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{store: s, publisher: publisher, debounce: debounce}
}

// Start begins watching every entity directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range Dirs() {
		path := filepath.Join(w.store.Path(), dir)
		if err := fw.Add(path); err != nil {
			_ = fw.Close()
			return err
		}
		logging.Debug(subsystem, "Watching directory: %s", path)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.processEvents(ctx, fw, w.stopCh, w.doneCh)

	logging.Info(subsystem, "Started watching %s for changes", w.store.Path())
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, fw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-ctx.Done():
			w.cancelTimer()
			return

		case <-stopCh:
			w.cancelTimer()
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !isYAMLFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug(subsystem, "File event %s on %s", event.Op, event.Name)
			w.scheduleReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Error(subsystem, err, "Filesystem watcher error")
		}
	}
}

// scheduleReload debounces reloads across the whole directory.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	w.timer = nil
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}

	changes, err := w.store.Reload()
	if err != nil {
		logging.Error(subsystem, err, "Reload of %s failed, keeping previous state", w.store.Path())
		return
	}
	for _, c := range changes {
		logging.Debug(subsystem, "Publishing %s for %q", c.Event, c.Payload.Key())
		w.publisher.Publish(c.Event, c.Payload)
	}
	if len(changes) > 0 {
		logging.Info(subsystem, "Reloaded %s: %d change(s)", w.store.Path(), len(changes))
	}
}

func (w *Watcher) cancelTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	<-doneCh
	err := fw.Close()
	if err != nil {
		logging.Error(subsystem, err, "Error closing filesystem watcher")
	}
	logging.Info(subsystem, "Stopped watching %s", w.store.Path())
	return err
}
