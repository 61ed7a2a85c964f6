package session

import (
	"sync"
	"time"

	"galaxy-server/internal/galaxy"
)

// RegenerateRequested is raised by an editing surface whenever a parameter
// changes.
type RegenerateRequested struct {
	Parameters galaxy.Parameters
	Seed       uint64
}

// Debouncer collapses bursts of RegenerateRequested commands and dispatches
// only the last one once no new command has arrived for the delay.
// Dispatches never overlap and run in the order their commands were taken.
// dispatch must not call Flush.
type Debouncer struct {
	// dispatchMu is held from taking a command until its dispatch returns.
	dispatchMu sync.Mutex
	mu         sync.Mutex
	delay    time.Duration
	dispatch func(RegenerateRequested)
	timer    *time.Timer
	pending  *RegenerateRequested
	token    uint64
	stopped  bool
}

func NewDebouncer(delay time.Duration, dispatch func(RegenerateRequested)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		dispatch: dispatch,
	}
}

func (d *Debouncer) Request(cmd RegenerateRequested) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = &cmd
	d.token++
	if d.timer != nil {
		d.timer.Stop()
	}
	token := d.token
	d.timer = time.AfterFunc(d.delay, func() { d.fire(token) })
}

func (d *Debouncer) fire(token uint64) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	if token != d.token || d.pending == nil {
		d.mu.Unlock()
		return
	}
	cmd := *d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.dispatch(cmd)
}

// Flush dispatches the pending command immediately, if any.
func (d *Debouncer) Flush() {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.token++
	cmd := d.pending
	d.pending = nil
	d.mu.Unlock()

	if cmd != nil {
		d.dispatch(*cmd)
	}
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop drops any pending command and ignores later requests.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = nil
	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
