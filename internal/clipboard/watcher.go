package clipboard

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultDropCooldown suppresses clipboard checks right after a
// drag-and-drop. A drop refocuses the window, and without the cooldown
// the focus check would immediately re-import whatever the clipboard
// happened to hold.
const DefaultDropCooldown = 500 * time.Millisecond

// ReadFunc reads the current clipboard text.
type ReadFunc func(ctx context.Context) (string, error)

// AddFunc imports a discovered URL into the download list.
type AddFunc func(url string) error

// Watcher checks the clipboard when the window regains focus and imports
// http(s) URLs it has not seen before. It never polls; focus is the only
// trigger.
type Watcher struct {
	read    ReadFunc
	add     AddFunc
	enabled func() bool
	logger  *slog.Logger

	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastDrop  time.Time
	lastSeen  string
	onReadErr func(error)
}

// NewWatcher wires a watcher. enabled gates every check so the setting
// can flip at runtime without rebuilding the watcher.
func NewWatcher(read ReadFunc, add AddFunc, enabled func() bool, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Watcher{
		read:     read,
		add:      add,
		enabled:  enabled,
		logger:   logger.With("component", "clipboard-watcher"),
		cooldown: DefaultDropCooldown,
		now:      time.Now,
	}
}

// SetOnReadError installs an observer for clipboard read failures. Reads
// failing is non-fatal either way; the observer exists for surfaces that
// want to show a diagnostic.
func (w *Watcher) SetOnReadError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReadErr = fn
}

// SetCooldown overrides the drop cooldown.
func (w *Watcher) SetCooldown(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cooldown = d
}

// MarkDropOccurred records a drag-and-drop, suppressing checks for the
// cooldown window.
func (w *Watcher) MarkDropOccurred() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastDrop = w.now()
}

// ResetDropTimestamp clears the drop suppression immediately.
func (w *Watcher) ResetDropTimestamp() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastDrop = time.Time{}
}

// CheckOnFocus runs one clipboard check. It reports whether a URL was
// imported. Disabled watchers and checks inside the drop cooldown skip
// the clipboard read entirely.
func (w *Watcher) CheckOnFocus(ctx context.Context) bool {
	if !w.enabled() {
		return false
	}

	w.mu.Lock()
	inCooldown := !w.lastDrop.IsZero() && w.now().Sub(w.lastDrop) < w.cooldown
	w.mu.Unlock()
	if inCooldown {
		w.logger.Debug("clipboard check suppressed by drop cooldown")
		return false
	}

	text, err := w.read(ctx)
	if err != nil {
		w.logger.Error("clipboard read failed", "error", err)
		w.mu.Lock()
		onErr := w.onReadErr
		w.mu.Unlock()
		if onErr != nil {
			onErr(err)
		}
		return false
	}
	if !isHTTPURL(text) {
		return false
	}

	w.mu.Lock()
	if text == w.lastSeen {
		w.mu.Unlock()
		return false
	}
	w.lastSeen = text
	w.mu.Unlock()

	if err := w.add(text); err != nil {
		w.logger.Debug("clipboard url not imported", "url", text, "error", err)
		return false
	}
	w.logger.Info("clipboard url imported", "url", text)
	return true
}

func isHTTPURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
