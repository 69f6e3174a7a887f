package status

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgate/dataviewer/internal/live"
)

func TestApplyConnectionEvents(t *testing.T) {
	m := New()
	m.Width = 120
	m.Reset("tg_objects")

	m.Apply(live.Event{Kind: live.EventOpened})
	assert.True(t, m.Connected)
	assert.Contains(t, m.View(), "Live")

	m.Apply(live.Event{Kind: live.EventClosed, Code: 1006, Attempt: 1, Retrying: true, RetryIn: 2 * time.Second})
	assert.False(t, m.Connected)
	assert.True(t, m.Retrying)
	assert.Contains(t, m.View(), "retry 2 in 2s")

	m.Apply(live.Event{Kind: live.EventClosed, Code: 1006, Attempt: 5})
	assert.True(t, m.GaveUp)
	assert.Contains(t, m.View(), "Offline after 5 attempts")

	m.Apply(live.Event{Kind: live.EventOpened})
	assert.False(t, m.GaveUp)
	assert.Zero(t, m.Attempt)
}

func TestManualCloseIsNotGivingUp(t *testing.T) {
	m := New()
	m.Width = 120
	m.Apply(live.Event{Kind: live.EventClosed, Code: live.CloseManual})
	assert.False(t, m.GaveUp)
	assert.False(t, m.Retrying)
}

func TestRelevantMessageStartsPulse(t *testing.T) {
	m := New()
	m.Width = 120
	m.Apply(live.Event{Kind: live.EventOpened})

	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	cmd := m.Apply(live.Event{Kind: live.EventMessage, Relevant: true,
		Notification: live.Notification{Channel: "tg_objects_changes", ReceivedAt: at}})
	require.NotNil(t, cmd)
	assert.True(t, m.Pulsing())
	assert.Equal(t, at, m.LastMessage)
	assert.Contains(t, m.View(), "last change 10:30:00")

	cmd = m.Apply(live.Event{Kind: live.EventMessage, Relevant: false})
	assert.Nil(t, cmd)
}

func TestAnimateSettles(t *testing.T) {
	m := New()
	m.Width = 120
	m.Pulse()
	settled := false
	for i := 0; i < 10*fps; i++ {
		if m.Animate() == nil {
			settled = true
			break
		}
	}
	assert.True(t, settled, "spring never settled")
	assert.False(t, m.Pulsing())
}

func TestPulseBurstKeepsOneFrameChain(t *testing.T) {
	m := New()
	m.Width = 120
	require.NotNil(t, m.Pulse())
	for i := 0; i < 5; i++ {
		assert.Nil(t, m.Pulse(), "running animation must not start another chain")
	}
	assert.True(t, m.Pulsing())

	for m.Animate() != nil {
	}
	assert.NotNil(t, m.Pulse(), "a settled spring starts a new chain")
}

func TestReconcileWithClientState(t *testing.T) {
	m := New()
	m.Width = 120
	assert.False(t, m.Reconcile(false))

	assert.True(t, m.Reconcile(true))
	assert.True(t, m.Connected)
	assert.Contains(t, m.View(), "Live")

	assert.True(t, m.Reconcile(false))
	assert.False(t, m.Connected)
	assert.Contains(t, m.View(), "Offline")
}

func TestViewFetchState(t *testing.T) {
	m := New()
	m.Width = 120
	m.Fetching = true
	assert.Contains(t, m.View(), "fetching")

	m.Fetching = false
	m.FetchErr = errors.New("boom")
	out := m.View()
	assert.True(t, strings.Contains(out, "R to retry"), out)
}
