package live

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// CloseManual is the close code reserved for intentional disconnects. A
// closure with this code never triggers a retry.
const CloseManual = websocket.CloseNormalClosure

// Conn is the subset of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// Dial performs the websocket handshake.
func (d WebsocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	wd := d.Dialer
	if wd == nil {
		wd = websocket.DefaultDialer
	}
	conn, resp, err := wd.DialContext(ctx, endpoint, d.Header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s: %s", endpoint, resp.Status)
		}
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}
	return conn, nil
}

// EndpointURL derives the push endpoint for table from a ws:// or wss:// base.
func EndpointURL(base, table string) string {
	return strings.TrimRight(base, "/") + "/ws/" + url.PathEscape(table)
}

// closeStatus extracts the close code from a read error. Anything that is not
// a close frame counts as an abnormal closure (1006).
func closeStatus(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
