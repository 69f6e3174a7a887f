// Package logging adapts glog to the logger interfaces of third-party
// libraries so every component writes to the same glog sinks.
package logging

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/lib/pq"
)

// Retryable implements retryablehttp.LeveledLogger on top of glog. Debug
// lines are only emitted at -v=2.
type Retryable struct{}

func (Retryable) Error(msg string, keysAndValues ...interface{}) {
	glog.ErrorDepth(1, format(msg, keysAndValues))
}

func (Retryable) Warn(msg string, keysAndValues ...interface{}) {
	glog.WarningDepth(1, format(msg, keysAndValues))
}

func (Retryable) Info(msg string, keysAndValues ...interface{}) {
	if glog.V(1) {
		glog.InfoDepth(1, format(msg, keysAndValues))
	}
}

func (Retryable) Debug(msg string, keysAndValues ...interface{}) {
	if glog.V(2) {
		glog.InfoDepth(1, format(msg, keysAndValues))
	}
}

// format renders "msg k1=v1 k2=v2".
func format(msg string, kv []interface{}) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}

// PQEvent is a pq.EventCallbackType that logs listener connection changes.
func PQEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		glog.Info("pq listener: connected")
	case pq.ListenerEventDisconnected:
		glog.Warningf("pq listener: disconnected: %v", err)
	case pq.ListenerEventReconnected:
		glog.Info("pq listener: reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		glog.Warningf("pq listener: connection attempt failed: %v", err)
	}
}
