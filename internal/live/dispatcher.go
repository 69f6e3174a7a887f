package live

import (
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultDebounce lets the write behind a notification become readable
// before the refetch runs.
const DefaultDebounce = 100 * time.Millisecond

// Invalidator is the query cache as seen by the dispatcher.
type Invalidator interface {
	// Invalidate marks the cached pages of table stale without fetching.
	Invalidate(table string)
	// Refetch fetches the pages of table that are currently on screen.
	Refetch(table string)
}

// Dispatcher turns relevant notifications into debounced refetches. A burst
// of notifications inside one window is served by the single refetch already
// pending; the refetch never runs inside the notification callback.
type Dispatcher struct {
	inv    Invalidator
	sched  Scheduler
	window time.Duration

	mu      sync.Mutex
	pending Timer
	seq     uint64
	closed  bool
}

// NewDispatcher creates a dispatcher. A nil scheduler uses real timers and a
// non-positive window uses DefaultDebounce.
func NewDispatcher(inv Invalidator, sched Scheduler, window time.Duration) *Dispatcher {
	if sched == nil {
		sched = SystemScheduler{}
	}
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Dispatcher{inv: inv, sched: sched, window: window}
}

// OnNotification handles n for table and reports whether it was relevant.
func (d *Dispatcher) OnNotification(table string, n Notification) bool {
	if !Relevant(table, n.Channel) {
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	if d.pending == nil {
		d.seq++
		seq := d.seq
		d.pending = d.sched.AfterFunc(d.window, func() { d.fire(table, seq) })
	}
	d.mu.Unlock()

	d.inv.Invalidate(table)
	return true
}

// Pending reports whether a refetch is scheduled.
func (d *Dispatcher) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Close cancels the pending refetch. Later notifications are ignored.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.seq++
}

func (d *Dispatcher) fire(table string, seq uint64) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	glog.V(1).Infof("live: %s: refetching after change", table)
	d.inv.Refetch(table)
}
