package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// manualScheduler records timers and fires them on demand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (s *manualScheduler) pendingDelays() []time.Duration {
	var out []time.Duration
	for _, t := range s.pending() {
		out = append(out, t.delay)
	}
	return out
}

// fireNext runs the oldest pending timer and reports its delay.
func (s *manualScheduler) fireNext() (time.Duration, bool) {
	s.mu.Lock()
	var next *manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return 0, false
	}
	next.fired = true
	s.mu.Unlock()
	next.f()
	return next.delay, true
}

// fakeConn is an in-memory push connection.
type fakeConn struct {
	frames chan []byte
	errs   chan error
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	written  [][]byte
	controls []int
	closeMsg []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.frames:
		return websocket.TextMessage, data, nil
	case err := <-c.errs:
		return 0, nil, err
	case <-c.done:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	if messageType == websocket.CloseMessage {
		c.closeMsg = data
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) push(v any) {
	data, _ := json.Marshal(v)
	c.frames <- data
}

func (c *fakeConn) pushRaw(s string) { c.frames <- []byte(s) }

// drop simulates the peer closing with code.
func (c *fakeConn) drop(code int) {
	c.errs <- &websocket.CloseError{Code: code, Text: "peer went away"}
}

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *fakeConn) sentClose() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeMsg
}

// fakeDialer hands out fakeConns, or fails while fail is set.
type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	fail  bool
	gate  chan struct{} // when non-nil, Dial blocks until it is closed
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, errors.New("connection refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// recorder collects events in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) lastOf(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// countingInvalidator records dispatcher calls.
type countingInvalidator struct {
	mu          sync.Mutex
	invalidated []string
	refetched   []string
}

func (c *countingInvalidator) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, table)
}

func (c *countingInvalidator) Refetch(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refetched = append(c.refetched, table)
}

func (c *countingInvalidator) refetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refetched)
}

func (c *countingInvalidator) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}
