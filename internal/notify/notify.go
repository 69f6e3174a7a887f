// Package notify carries table change notifications from the storage layer
// to the push endpoint, either in process or through Postgres LISTEN/NOTIFY.
package notify

import (
	"encoding/json"
	"sync"

	"github.com/golang/glog"
)

// ChannelSuffix is appended to a table name to form its change channel.
const ChannelSuffix = "_changes"

// Notification is the frame pushed to viewers.
type Notification struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Change is the payload published for a row change.
type Change struct {
	Op    string `json:"op"`
	Table string `json:"table"`
	ID    int64  `json:"id"`
}

// Channel returns the change channel of table.
func Channel(table string) string {
	return table + ChannelSuffix
}

// ChangeNotification builds the notification for a change to table.
func ChangeNotification(table, op string, id int64) Notification {
	payload, _ := json.Marshal(Change{Op: op, Table: table, ID: id})
	return Notification{Channel: Channel(table), Payload: payload}
}

// Publisher accepts notifications.
type Publisher interface {
	Publish(n Notification)
}

// Feed fans notifications out to subscribers. A subscriber whose buffer is
// full misses the notification rather than stalling the publisher.
type Feed struct {
	buffer int

	mu     sync.Mutex
	subs   map[int]chan Notification
	next   int
	closed bool
}

// NewFeed creates a feed with per-subscriber buffers of the given size.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{buffer: buffer, subs: make(map[int]chan Notification)}
}

// Subscribe returns a channel of notifications and a func that ends the
// subscription and closes the channel.
func (f *Feed) Subscribe() (<-chan Notification, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Notification, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.next
	f.next++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers n to every subscriber.
func (f *Feed) Publish(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for id, ch := range f.subs {
		select {
		case ch <- n:
		default:
			glog.Warningf("notify: subscriber %d full, dropping %s", id, n.Channel)
		}
	}
}

// Close ends every subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
