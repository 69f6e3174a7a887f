package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	manualReason = "Manual disconnect"
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// State is the connection state of a Client.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Client. Zero values select production defaults.
type Options struct {
	Dialer    Dialer
	Scheduler Scheduler
	Policy    Policy
	Handler   func(Event)
}

// Client keeps one push connection for one table alive.
//
// Every asynchronous callback (dial result, read error, retry timer) carries
// the generation or timer token it was started under and is dropped once the
// client has moved on, so at most one connection is ever live.
type Client struct {
	table   string
	url     string
	dialer  Dialer
	sched   Scheduler
	policy  Policy
	handler func(Event)

	mu       sync.Mutex
	writeMu  sync.Mutex // serialises conn writes (ping, send, close frame)
	state    State
	conn     Conn
	dialing  bool
	stop     context.CancelFunc // cancels the in-flight dial and ping loop
	gen      uint64
	attempt  int
	retry    Timer
	retrySeq uint64
	last     *Notification
	torn     bool
}

// NewClient creates a client for table. base is the push server root, e.g.
// "ws://localhost:8000".
func NewClient(base, table string, opts Options) *Client {
	c := &Client{
		table:   table,
		url:     EndpointURL(base, table),
		dialer:  opts.Dialer,
		sched:   opts.Scheduler,
		policy:  opts.Policy,
		handler: opts.Handler,
		state:   StateConnecting,
	}
	if c.dialer == nil {
		c.dialer = WebsocketDialer{}
	}
	if c.sched == nil {
		c.sched = SystemScheduler{}
	}
	if c.policy == (Policy{}) {
		c.policy = DefaultPolicy()
	} else {
		c.policy = c.policy.withDefaults()
	}
	return c
}

// Table returns the subscribed table name.
func (c *Client) Table() string { return c.table }

// URL returns the push endpoint.
func (c *Client) URL() string { return c.url }

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected is true iff the state is Open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// Attempt returns the consecutive failure count since the last Open.
func (c *Client) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// LastMessage returns the most recent relevant notification.
func (c *Client) LastMessage() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Notification{}, false
	}
	return *c.last, true
}

// Connect starts a connection attempt. It is a no-op while a connection is
// open or a dial is already in flight.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.torn || c.state == StateOpen || c.dialing {
		c.mu.Unlock()
		return
	}
	c.stopRetryLocked()
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.dialing = true
	c.state = StateConnecting
	attempt := c.attempt
	c.mu.Unlock()

	glog.V(1).Infof("live: %s: connecting to %s (attempt %d)", c.table, c.url, attempt)
	go c.run(ctx, gen)
}

// Reconnect is the external re-trigger after retries ran out: it drops any
// pending retry, resets the attempt counter and connects.
func (c *Client) Reconnect() {
	c.mu.Lock()
	c.stopRetryLocked()
	c.attempt = 0
	c.mu.Unlock()
	c.Connect()
}

// Disconnect closes the connection with the manual close code. Manual
// closures never schedule a retry.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopRetryLocked()
	c.gen++
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	conn := c.conn
	c.conn = nil
	c.dialing = false
	wasActive := c.state != StateClosed
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(CloseManual, manualReason)
		c.writeMu.Lock()
		err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		if err != nil {
			glog.V(1).Infof("live: %s: close frame: %v", c.table, err)
		}
		conn.Close()
	}
	if wasActive {
		glog.Infof("live: %s: disconnected", c.table)
		c.emit(Event{Kind: EventClosed, Code: CloseManual, Reason: manualReason})
	}
}

// Close tears the client down for good: no further events, dials or retries.
func (c *Client) Close() {
	c.mu.Lock()
	c.torn = true
	c.mu.Unlock()
	c.Disconnect()
}

// SendMessage writes v as JSON when open. Otherwise the message is dropped
// with a warning.
func (c *Client) SendMessage(v any) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		glog.Warningf("live: %s: not connected, dropping outbound message", c.table)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		glog.Warningf("live: %s: encode outbound message: %v", c.table, err)
		return
	}
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		glog.Warningf("live: %s: send: %v", c.table, err)
	}
}

// run owns one connection attempt from dial to closure.
func (c *Client) run(ctx context.Context, gen uint64) {
	conn, err := c.dialer.Dial(ctx, c.url)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	c.dialing = false
	if err != nil {
		c.mu.Unlock()
		glog.Warningf("live: %s: %v", c.table, err)
		c.closed(gen, websocket.CloseAbnormalClosure, err.Error())
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempt = 0
	c.mu.Unlock()

	glog.Infof("live: %s: connected to %s", c.table, c.url)
	c.emit(Event{Kind: EventOpened})

	go c.pingLoop(ctx, conn)
	code, reason := c.readLoop(gen, conn)
	conn.Close()
	c.closed(gen, code, reason)
}

func (c *Client) readLoop(gen uint64, conn Conn) (int, string) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return closeStatus(err)
		}

		n, err := decodeNotification(data)
		if err != nil {
			glog.Warningf("live: %s: dropping frame: %v", c.table, err)
			continue
		}
		n.ReceivedAt = time.Now()
		relevant := Relevant(c.table, n.Channel)

		c.mu.Lock()
		current := gen == c.gen
		if current && relevant {
			c.last = &n
		}
		c.mu.Unlock()
		if !current {
			return CloseManual, manualReason
		}

		glog.V(2).Infof("live: %s: notification on %s (relevant=%t)", c.table, n.Channel, relevant)
		c.emit(Event{Kind: EventMessage, Notification: n, Relevant: relevant})
	}
}

// pingLoop keeps the read deadline alive. It exits when the attempt's context
// is cancelled or a ping fails; the read loop then sees the failure.
func (c *Client) pingLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// closed records the end of generation gen and consults the policy.
func (c *Client) closed(gen uint64, code int, reason string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.dialing = false
	c.state = StateClosed
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	ev := Event{Kind: EventClosed, Code: code, Reason: reason, Attempt: c.attempt}
	if code != CloseManual && !c.torn {
		if delay, ok := c.policy.Next(c.attempt); ok {
			c.scheduleRetryLocked(delay)
			ev.Retrying = true
			ev.RetryIn = delay
		}
	}
	c.mu.Unlock()

	switch {
	case ev.Retrying:
		glog.Infof("live: %s: closed (%d %s), reconnecting in %v", c.table, code, reason, ev.RetryIn)
	case code == CloseManual:
		glog.Infof("live: %s: closed by server", c.table)
	default:
		glog.Warningf("live: %s: closed (%d %s), giving up after %d attempts", c.table, code, reason, ev.Attempt)
	}
	c.emit(ev)
}

func (c *Client) scheduleRetryLocked(delay time.Duration) {
	c.stopRetryLocked()
	seq := c.retrySeq
	c.retry = c.sched.AfterFunc(delay, func() { c.fireRetry(seq) })
}

// stopRetryLocked cancels the pending retry and invalidates its token, so a
// timer that already fired concurrently does nothing.
func (c *Client) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.retrySeq++
}

func (c *Client) fireRetry(seq uint64) {
	c.mu.Lock()
	if seq != c.retrySeq || c.torn {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	c.attempt++
	c.mu.Unlock()
	c.Connect()
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	torn := c.torn
	c.mu.Unlock()
	if torn || c.handler == nil {
		return
	}
	ev.Table = c.table
	c.handler(ev)
}
