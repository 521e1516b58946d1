// Package debounce republishes the last value pushed within a quiet
// period. It decouples frequent list writes (fetches, search edits, status
// pushes) from the expensive subscription reconciliation they feed.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the quiet period used when New is given a zero wait.
const DefaultWait = 300 * time.Millisecond

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// Debouncer emits the most recently pushed value once no push has arrived
// for the configured wait (trailing edge). Values superseded inside the
// window are dropped, never merged.
type Debouncer[T any] struct {
	// emitMu is held from taking a value until its emit returns, so
	// emissions arrive in the order their values were pushed.
	emitMu    sync.Mutex
	mu        sync.Mutex
	wait      time.Duration
	emit      func(T)
	after     afterFunc
	timer     stopper
	pending   T
	hasValue  bool
	seq       uint64
	cancelled bool
}

// New returns a Debouncer that calls emit on its own goroutine. Emissions
// never overlap; emit must not call Flush.
func New[T any](wait time.Duration, emit func(T)) *Debouncer[T] {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer[T]{
		wait:  wait,
		emit:  emit,
		after: realAfterFunc,
	}
}

// Push records v as the pending value and restarts the window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelled {
		return
	}
	d.pending = v
	d.hasValue = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.after(d.wait, func() { d.fire(seq) })
}

// fire emits the pending value if no newer push or cancel happened since
// the timer for seq was armed.
func (d *Debouncer[T]) fire(seq uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.cancelled || seq != d.seq || !d.hasValue {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	d.emit(v)
}

// Flush emits the pending value immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.cancelled || !d.hasValue {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	v := d.take()
	d.mu.Unlock()

	d.emit(v)
}

// Cancel drops any pending value. Nothing is emitted afterwards and later
// pushes are ignored.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending = zero
	d.hasValue = false
}

// Pending reports whether a value is waiting for its window to pass.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasValue
}

// take must be called with mu held.
func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending = zero
	d.hasValue = false
	d.timer = nil
	return v
}
