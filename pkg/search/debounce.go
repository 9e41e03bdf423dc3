package search

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the quiet window used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer schedules a function to run after a quiet window, keeping at
// most one search in flight per active query. Scheduling a new call
// before the window elapses discards the pending one; scheduling while a
// previous call is already running cancels its context so a late result
// can be abandoned.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewDebouncer creates a debouncer. A non-positive delay uses
// DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Do schedules fn to run after the quiet window. Any pending scheduled
// call is discarded, and the context of a superseded running call is
// cancelled. fn receives a context derived from ctx that is cancelled
// when a newer call supersedes it.
func (d *Debouncer) Do(ctx context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}

	callCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		fn(callCtx)
	})
}

// Stop discards any pending call and cancels a running one.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
