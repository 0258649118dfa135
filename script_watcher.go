package main

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"Puppeteer/pkg/logging"
)

// scriptDebounce is how long a script must stay quiet before onChange runs.
const scriptDebounce = 300 * time.Millisecond

// ScriptWatcher calls onChange whenever a playback script is saved. It
// watches the script's directory, since editors often replace files by
// renaming a temporary file over them.
type ScriptWatcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewScriptWatcher creates a watcher for path.
func NewScriptWatcher(path string, onChange func(path string)) *ScriptWatcher {
	return &ScriptWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: scriptDebounce,
	}
}

// Start begins watching the script
func (w *ScriptWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	logging.LogInfo("script_watcher").Str("path", w.path).Msg("Started watching script")

	go w.watch(watcher, w.stopCh, w.doneCh)
	return nil
}

// Stop stops watching and waits for a pending notification to be dropped.
func (w *ScriptWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		close(w.stopCh)
		w.watcher.Close()
		<-w.doneCh
		w.watcher = nil
		logging.LogInfo("script_watcher").Msg("Stopped watching script")
	}
}

// watch is the main watch loop
func (w *ScriptWatcher) watch(watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// Debounce: wait for events to settle before notifying
	var debounceTimer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-fire:
			w.onChange(w.path)

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// A removal is followed by a create when the file is replaced.
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}

			logging.LogDebug("script_watcher").Str("op", event.Op.String()).Msg("Script changed")

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.LogError("script_watcher").Err(err).Msg("Watcher error")
		}
	}
}
