package live

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ChangeMarker is the suffix of the per-table change channels the database
// notifies on ("telegram_message_changes"). Any channel carrying it counts as
// relevant to every subscription.
const ChangeMarker = "_changes"

// Notification is one inbound push frame.
type Notification struct {
	Channel    string          `json:"channel"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"-"`
}

// Relevant reports whether a notification on channel concerns table. This is
// a substring test, not a structured match: "x_telegram_message_y" matches
// telegram_message, and so does any channel ending in the change marker.
func Relevant(table, channel string) bool {
	if table == "" {
		return false
	}
	return strings.Contains(channel, table) || strings.Contains(channel, ChangeMarker)
}

type wireNotification struct {
	Channel *string         `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

func decodeNotification(data []byte) (Notification, error) {
	var w wireNotification
	if err := json.Unmarshal(data, &w); err != nil {
		return Notification{}, errors.Wrap(err, "decode notification")
	}
	if w.Channel == nil {
		return Notification{}, errors.New("decode notification: missing channel")
	}
	return Notification{Channel: *w.Channel, Payload: w.Payload}, nil
}

// EventKind identifies what happened on a subscription.
type EventKind int

const (
	EventOpened EventKind = iota
	EventMessage
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to the single handler of a Client.
type Event struct {
	Kind  EventKind
	Table string

	// EventMessage.
	Notification Notification
	Relevant     bool

	// EventClosed.
	Code     int
	Reason   string
	Attempt  int
	Retrying bool
	RetryIn  time.Duration
}
