package live

import (
	"time"

	"github.com/pkg/errors"
)

// SubscriptionConfig wires a Subscription to its collaborators.
type SubscriptionConfig struct {
	// BaseURL is the push server root, e.g. "ws://localhost:8000".
	BaseURL     string
	Invalidator Invalidator
	Handler     func(Event)

	Policy    Policy
	Debounce  time.Duration
	Dialer    Dialer
	Scheduler Scheduler
}

// Subscription binds one table view to one push feed. It exclusively owns
// its client (with the retry timer and counter) and its dispatcher (with the
// debounce timer).
type Subscription struct {
	table      string
	client     *Client
	dispatcher *Dispatcher
	handler    func(Event)
}

// NewSubscription creates a subscription for table. Call Start to connect.
func NewSubscription(table string, cfg SubscriptionConfig) (*Subscription, error) {
	if table == "" {
		return nil, errors.New("subscription: empty table name")
	}
	if cfg.Invalidator == nil {
		return nil, errors.New("subscription: nil invalidator")
	}

	s := &Subscription{
		table:      table,
		dispatcher: NewDispatcher(cfg.Invalidator, cfg.Scheduler, cfg.Debounce),
		handler:    cfg.Handler,
	}
	s.client = NewClient(cfg.BaseURL, table, Options{
		Dialer:    cfg.Dialer,
		Scheduler: cfg.Scheduler,
		Policy:    cfg.Policy,
		Handler:   s.handle,
	})
	return s, nil
}

// Start opens the push connection.
func (s *Subscription) Start() { s.client.Connect() }

// Table returns the subscribed table.
func (s *Subscription) Table() string { return s.table }

// Client exposes the connection for IsConnected, LastMessage, SendMessage,
// Reconnect and Disconnect.
func (s *Subscription) Client() *Client { return s.client }

// Close tears the subscription down: retry and debounce timers are
// cancelled and the connection is closed with the manual code.
func (s *Subscription) Close() {
	s.client.Close()
	s.dispatcher.Close()
}

func (s *Subscription) handle(ev Event) {
	if ev.Kind == EventMessage {
		s.dispatcher.OnNotification(s.table, ev.Notification)
	}
	if s.handler != nil {
		s.handler(ev)
	}
}
