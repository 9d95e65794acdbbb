// Package debounce implements a per-key trailing debouncer: each Trigger
// resets that key's delay window, and the action only runs once no
// further Trigger arrives for the configured delay.
package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of same-key Trigger calls into a single
// delayed invocation of action, started delay after the last Trigger for
// that key, per spec.md §9's re-architecture note on debounce as
// cancellable delayed tasks.
type Debouncer struct {
	delay  time.Duration
	action func(key string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New builds a Debouncer that calls action(key) delay after the last
// Trigger(key), collapsing any Trigger(key) calls that land within the
// window into that single call.
func New(delay time.Duration, action func(key string)) *Debouncer {
	return &Debouncer{
		delay:  delay,
		action: action,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger (re)starts the delay window for key. It is safe for concurrent
// use across goroutines and across keys.
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		d.action(key)
	})
}

// Stop cancels any pending timer for key without firing the action.
func (d *Debouncer) Stop(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}
