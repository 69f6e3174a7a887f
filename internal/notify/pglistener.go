package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tgate/dataviewer/internal/logging"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// PGListener forwards Postgres NOTIFY messages on a set of channels to a
// Publisher.
type PGListener struct {
	l   *pq.Listener
	out Publisher
}

// NewPGListener connects to dsn and listens on channels.
func NewPGListener(dsn string, channels []string, out Publisher) (*PGListener, error) {
	l := pq.NewListener(dsn, minReconnect, maxReconnect, logging.PQEvent)
	for _, ch := range channels {
		if err := l.Listen(ch); err != nil {
			l.Close()
			return nil, errors.Wrapf(err, "listen %s", ch)
		}
	}
	glog.Infof("notify: listening on %v", channels)
	return &PGListener{l: l, out: out}, nil
}

// Run forwards notifications until ctx is done.
func (p *PGListener) Run(ctx context.Context) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-p.l.Notify:
			if !ok {
				return errors.New("pq listener closed")
			}
			if n == nil {
				// The connection was re-established; changes in between are lost.
				glog.Warning("notify: listener reconnected, notifications may have been missed")
				continue
			}
			p.out.Publish(fromPQ(n))
		case <-ping.C:
			if err := p.l.Ping(); err != nil {
				glog.Warningf("notify: ping: %v", err)
			}
		}
	}
}

// Close stops listening.
func (p *PGListener) Close() error {
	return p.l.Close()
}

func fromPQ(n *pq.Notification) Notification {
	payload := json.RawMessage(n.Extra)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(n.Extra)
	}
	return Notification{Channel: n.Channel, Payload: payload}
}
