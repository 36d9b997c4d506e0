// Package debounce rate-limits event classes by elapsed time since they last fired.
package debounce

import (
	"sync"
	"time"
)

// ClassEnvironment is the rate-limited class for environment snapshots.
const ClassEnvironment = "environment"

// DefaultEnvironmentWindow is the minimum interval between two environment events.
const DefaultEnvironmentWindow = time.Hour

// Debouncer tracks when each event class last fired. It never records on its own: callers
// check ShouldFire and then Record, so they control when a fire is claimed.
type Debouncer struct {
	mu        sync.Mutex
	windows   map[string]time.Duration
	lastFired map[string]time.Time
}

// New returns a Debouncer with the given per-class windows.
func New(windows map[string]time.Duration) *Debouncer {
	w := make(map[string]time.Duration, len(windows))
	for class, d := range windows {
		w[class] = d
	}
	return &Debouncer{windows: w, lastFired: make(map[string]time.Time)}
}

// Window returns the configured window for class (0 when the class is not rate-limited).
func (d *Debouncer) Window(class string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.windows[class]
}

// ShouldFire reports whether class may fire at now using its configured window.
func (d *Debouncer) ShouldFire(class string, now time.Time) bool {
	return d.ShouldFireWithin(class, now, d.Window(class))
}

// ShouldFireWithin reports whether class has never fired or last fired at least window before now.
func (d *Debouncer) ShouldFireWithin(class string, now time.Time, window time.Duration) bool {
	d.mu.Lock()
	last, ok := d.lastFired[class]
	d.mu.Unlock()
	if !ok {
		return true
	}
	return now.Sub(last) >= window
}

// Record stores now as the last fire time for class.
func (d *Debouncer) Record(class string, now time.Time) {
	d.mu.Lock()
	d.lastFired[class] = now
	d.mu.Unlock()
}

// TryFire checks and records atomically; it returns true when the caller claimed the fire.
func (d *Debouncer) TryFire(class string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lastFired[class]; ok && now.Sub(last) < d.windows[class] {
		return false
	}
	d.lastFired[class] = now
	return true
}

// LastFired returns when class last fired; ok false if it never has.
func (d *Debouncer) LastFired(class string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.lastFired[class]
	return t, ok
}
