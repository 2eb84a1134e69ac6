package agent

import (
	"sync"
	"time"

	"telescreen-backend/internal/models"
)

// Default debounce windows. Intentionally asymmetric: short for
// high-severity security detections so repeats are not lost, long for
// behavioral signals to avoid alert storms.
var defaultWindows = map[string]time.Duration{
	models.AlertRestrictedApp: 30 * time.Second,
	models.AlertUserIdle:      10 * time.Minute,
	models.AlertMouseInactive: 10 * time.Minute,
	models.AlertLowTyping:     15 * time.Minute,
}

// Debouncer suppresses repeat alerts of the same kind/key inside their
// window. Entries are created lazily and evicted once stale, so the table
// stays bounded by alert-type cardinality times distinct keys.
type Debouncer struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	windows  map[string]time.Duration

	now func() time.Time
}

func NewDebouncer(windows map[string]time.Duration) *Debouncer {
	if windows == nil {
		windows = defaultWindows
	}
	d := &Debouncer{
		lastSent: make(map[string]time.Time),
		windows:  windows,
		now:      time.Now,
	}

	// Cleanup goroutine
	maxWindow := d.maxWindow()
	go func() {
		for {
			time.Sleep(maxWindow)
			cutoff := d.now().Add(-2 * maxWindow)
			d.mu.Lock()
			for key, sentAt := range d.lastSent {
				if sentAt.Before(cutoff) {
					delete(d.lastSent, key)
				}
			}
			d.mu.Unlock()
		}
	}()

	return d
}

// Allow reports whether an alert of this type/detail may be sent now, and
// records the send if so.
func (d *Debouncer) Allow(alertType, detailKey string) bool {
	window, ok := d.windows[alertType]
	if !ok {
		return true
	}

	key := debounceKey(alertType, detailKey)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if sentAt, seen := d.lastSent[key]; seen && now.Sub(sentAt) < window {
		return false
	}
	d.lastSent[key] = now
	return true
}

// debounceKey collapses variable detail text for behavioral alerts, but keeps
// the distinguishing detail (the process name) for restricted-app detections
// so different processes debounce independently.
func debounceKey(alertType, detailKey string) string {
	if alertType == models.AlertRestrictedApp {
		return alertType + "|" + detailKey
	}
	return alertType
}

func (d *Debouncer) maxWindow() time.Duration {
	max := time.Minute
	for _, w := range d.windows {
		if w > max {
			max = w
		}
	}
	return max
}
