package state

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiescence window applied to search input.
const DefaultSearchDebounce = 300 * time.Millisecond

// Debouncer delivers only the last value scheduled within a quiescence
// window. Each Schedule restarts the timer.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool

	delivering sync.WaitGroup
}

// NewDebouncer returns a debouncer that calls fn with the latest value once
// delay has passed without a new Schedule.
func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Schedule remembers v and restarts the timer. It does nothing after Close.
func (d *Debouncer[T]) Schedule(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq, v) })
}

// fire delivers v unless it was superseded or cancelled after the timer
// had already expired.
func (d *Debouncer[T]) fire(seq uint64, v T) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.delivering.Add(1)
	d.mu.Unlock()

	defer d.delivering.Done()
	d.fn(v)
}

// Cancel drops the pending value, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Pending reports whether a value is waiting to be delivered.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close cancels the pending value and ignores all later Schedule calls.
// It waits for a delivery already in progress, so it must not be called
// from fn.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.cancelLocked()
	d.mu.Unlock()

	d.delivering.Wait()
}

func (d *Debouncer[T]) cancelLocked() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
