// Package watch polls a single file for modification. The registry is
// rewritten by whole-file rename, so a poll that compares mtime and size is
// enough to notice every save without platform notification APIs.
package watch

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 250 * time.Millisecond

// Watcher monitors one file and invokes a callback when it changes,
// appears, or disappears.
type Watcher struct {
	path     string
	interval time.Duration

	mu       sync.Mutex
	onChange func()
	running  bool
	stopCh   chan struct{}

	exists   bool
	lastMod  time.Time
	lastSize int64
}

// NewWatcher creates a watcher for path. A non-positive interval falls back
// to DefaultInterval.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{path: path, interval: interval}
}

// OnChange sets the callback invoked after each observed change.
func (w *Watcher) OnChange(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is cancelled or Stop is called. The state at start
// is the baseline; only later changes fire the callback.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.baseline()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.check()
		}
	}
}

// Stop ends a running Start loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning reports whether the poll loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) baseline() {
	info, err := os.Stat(w.path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.exists = false
		return
	}
	w.exists = true
	w.lastMod = info.ModTime()
	w.lastSize = info.Size()
}

func (w *Watcher) check() {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback == nil {
		return
	}

	info, err := os.Stat(w.path)

	w.mu.Lock()
	var changed bool
	switch {
	case err != nil:
		changed = w.exists
		w.exists = false
	case !w.exists:
		changed = true
		w.exists = true
		w.lastMod, w.lastSize = info.ModTime(), info.Size()
	case info.ModTime().After(w.lastMod) || info.Size() != w.lastSize:
		changed = true
		w.lastMod, w.lastSize = info.ModTime(), info.Size()
	}
	w.mu.Unlock()

	if changed {
		callback()
	}
}
