package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"disqusctl/pkg/logging"
)

const watcherSubsystem = "ConfigWatcher"

// DefaultDebounceInterval is the quiet period after the last change before
// OnChange runs. Editors often write a file in several steps.
const DefaultDebounceInterval = 500 * time.Millisecond

// DefaultPollInterval is used when fsnotify is unavailable.
const DefaultPollInterval = 5 * time.Second

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Path is the config file to watch. Its directory must exist.
	Path string

	// OnChange is called after the file was written or created.
	OnChange func()

	Debounce     time.Duration
	PollInterval time.Duration
}

// Watcher reports changes to a config file. It watches the file's directory
// so atomic replace-by-rename saves are seen too, and falls back to polling
// the modification time when fsnotify cannot be used.
type Watcher struct {
	mu sync.Mutex

	config    WatcherConfig
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool
	polling   bool
	lastMod   time.Time

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	callbacks sync.WaitGroup
}

// NewWatcher creates a watcher. Call Start to begin watching.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounceInterval
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. It is a no-op when already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	w.stopCh = make(chan struct{})
	w.running = true

	dir := filepath.Dir(w.config.Path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn(watcherSubsystem, "fsnotify not available, falling back to polling: %v", err)
		w.startPolling()
		return nil
	}
	if err := watcher.Add(dir); err != nil {
		logging.Warn(watcherSubsystem, "Failed to watch directory %s, falling back to polling: %v", dir, err)
		watcher.Close()
		w.startPolling()
		return nil
	}
	w.fsWatcher = watcher

	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Info(watcherSubsystem, "Watching %s for changes", w.config.Path)
	return nil
}

func (w *Watcher) startPolling() {
	w.polling = true
	w.lastMod = modTime(w.config.Path)
	go w.poll()
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error(watcherSubsystem, err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.config.Path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	logging.Debug(watcherSubsystem, "Config file changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			current := modTime(w.config.Path)
			w.mu.Lock()
			changed := current.After(w.lastMod)
			w.lastMod = current
			w.mu.Unlock()
			if changed {
				logging.Debug(watcherSubsystem, "Config file change detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (w *Watcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		fire := running && callback != nil
		if fire {
			w.callbacks.Add(1)
		}
		w.mu.Unlock()

		if fire {
			defer w.callbacks.Done()
			callback()
		}
	})
}

// Polling reports whether the watcher fell back to polling.
func (w *Watcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Stop stops watching. Pending callbacks are cancelled and a callback that
// is already running is waited for. It must not be called from OnChange.
func (w *Watcher) Stop() error {
	defer w.callbacks.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn(watcherSubsystem, "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}
	return nil
}
