package plugin

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the optional hot-discovery watcher. It is a
// supplement beyond the synchronous Load/LoadAll/Reload API: it only
// schedules calls into LoadAll, it never bypasses the manager's
// mutex or its ordering guarantees.
type WatcherConfig struct {
	DebounceInterval time.Duration
}

// DefaultWatcherConfig returns the watcher's default debounce interval.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{DebounceInterval: 200 * time.Millisecond}
}

// Watcher watches the manager's plugin directory for new or changed
// archive bundles and triggers LoadAll, debounced to avoid a reload
// storm when several files land together (e.g. an unpacked archive
// plus its sibling signature file).
type Watcher struct {
	manager *Manager
	config  WatcherConfig
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	stopCh  chan struct{}
}

// NewWatcher builds a Watcher over manager's plugin directory.
func NewWatcher(manager *Manager, config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(manager.pluginDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		manager: manager,
		config:  config,
		fsw:     fsw,
		stopCh:  make(chan struct{}),
	}, nil
}

// Run blocks, watching for filesystem events until ctx is cancelled or
// Stop is called. Each qualifying event debounces into a single LoadAll
// call.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.debounce(ctx)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.manager.log.Error("plugin watcher error", "error", err)
		}
	}
}

// Stop ends a running Run loop.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), archiveExtension)
}

func (w *Watcher) debounce(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceInterval, func() {
		w.manager.LoadAll(ctx)
	})
}
