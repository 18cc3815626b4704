package generator

import (
	"sync"
	"time"
)

// Debouncer collapses rapid repeated triggers of an operation into a single
// trailing call: each Call reschedules the underlying function to run after
// the quiet period elapses with no further calls, with the arguments of the
// last call. It guards the generate button and param-change effects from
// firing duplicate network requests.
//
// The debouncer does not serialize slow executions of fn; overlapping runs
// are the orchestrator's in-flight guard's problem.
type Debouncer[T any] struct {
	quiet time.Duration
	fn    func(T) error

	mu    sync.Mutex
	timer *time.Timer
	errc  chan error
}

// NewDebouncer wraps fn with a trailing-edge debounce of the given quiet
// period.
func NewDebouncer[T any](quiet time.Duration, fn func(T) error) *Debouncer[T] {
	return &Debouncer[T]{quiet: quiet, fn: fn}
}

// Call schedules fn(v) after the quiet period, cancelling any previously
// scheduled invocation. All calls within one burst share the returned
// channel; it receives the error (or nil) of the single invocation that
// eventually fires. Failures of fn are not swallowed; they surface on
// whichever handle is still pending.
func (d *Debouncer[T]) Call(v T) <-chan error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil && !d.timer.Stop() {
		// The timer already fired: that run owns the current handle and
		// will deliver its own result. This call starts a fresh burst.
		d.errc = nil
	}
	if d.errc == nil {
		d.errc = make(chan error, 1)
	}
	errc := d.errc

	d.timer = time.AfterFunc(d.quiet, func() {
		// Detach the handle before running fn: a Call landing while fn
		// executes belongs to a new burst with its own handle.
		d.mu.Lock()
		if d.errc == errc {
			d.errc = nil
			d.timer = nil
		}
		d.mu.Unlock()

		// Each handle receives exactly one send and is buffered, so an
		// abandoned handle never blocks this goroutine.
		errc <- d.fn(v)
	})

	return errc
}

// Cancel drops any pending invocation without running it. The pending
// handle, if any, never receives a result.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.errc = nil
}
