package app

import (
	"github.com/tgate/dataviewer/internal/config"
	"github.com/tgate/dataviewer/internal/live"
)

// Feed is the push subscription of the table on screen.
type Feed interface {
	Start()
	Close()
	Reconnect()
	Connected() bool
}

// Subscriber opens the feed of table. Relevant notifications invalidate inv;
// every event is also passed to handler, from any goroutine.
type Subscriber func(table string, inv live.Invalidator, handler func(live.Event)) (Feed, error)

type liveFeed struct {
	*live.Subscription
}

func (f liveFeed) Reconnect()      { f.Client().Reconnect() }
func (f liveFeed) Connected() bool { return f.Client().IsConnected() }

// LiveSubscriber returns a Subscriber that dials cfg.Client.WSURL with the
// configured reconnection policy and debounce window.
func LiveSubscriber(cfg config.Config) Subscriber {
	return func(table string, inv live.Invalidator, handler func(live.Event)) (Feed, error) {
		s, err := live.NewSubscription(table, live.SubscriptionConfig{
			BaseURL:     cfg.Client.WSURL,
			Invalidator: inv,
			Handler:     handler,
			Policy: live.Policy{
				MaxAttempts: cfg.Live.MaxReconnectAttempts,
				Base:        cfg.Live.BaseDelay,
				Max:         cfg.Live.MaxDelay,
			},
			Debounce: cfg.Live.Debounce,
		})
		if err != nil {
			return nil, err
		}
		return liveFeed{s}, nil
	}
}
