package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		table   string
		channel string
		want    bool
	}{
		{"telegram_message", "telegram_message_changes", true},
		{"telegram_message", "telegram_message", true},
		{"telegram_message", "other_table_changes", true}, // generic change marker
		{"telegram_message", "other_table", false},
		{"telegram_message", "heartbeat", false},
		{"telegram_message", "TELEGRAM_MESSAGE", false}, // case-sensitive
		{"tg_objects", "tg_objects_changes", true},
		{"tg_objects", "tg_objects_stats", true},
		{"", "anything_changes", false},
	}

	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.channel, func(t *testing.T) {
			assert.Equal(t, tt.want, Relevant(tt.table, tt.channel))
		})
	}
}

func TestDispatcherIgnoresIrrelevant(t *testing.T) {
	inv := &countingInvalidator{}
	s := &manualScheduler{}
	d := NewDispatcher(inv, s, 0)

	assert.False(t, d.OnNotification("telegram_message", Notification{Channel: "other_table"}))
	assert.Equal(t, 0, inv.invalidations())
	assert.Empty(t, s.pending())
}

func TestDispatcherBurstSchedulesOneRefetch(t *testing.T) {
	inv := &countingInvalidator{}
	s := &manualScheduler{}
	d := NewDispatcher(inv, s, 0)

	for i := 0; i < 3; i++ {
		assert.True(t, d.OnNotification("tg_objects", Notification{Channel: "tg_objects_changes"}))
	}

	assert.Equal(t, 3, inv.invalidations())
	assert.Equal(t, 0, inv.refetches(), "refetch must not run inside the notification callback")
	assert.Equal(t, []time.Duration{DefaultDebounce}, s.pendingDelays())
	assert.True(t, d.Pending())

	s.fireNext()
	assert.Equal(t, 1, inv.refetches())
	assert.Equal(t, []string{"tg_objects"}, inv.refetched)
	assert.False(t, d.Pending())

	// A later notification opens a new window.
	d.OnNotification("tg_objects", Notification{Channel: "tg_objects_changes"})
	assert.Len(t, s.pending(), 1)
	s.fireNext()
	assert.Equal(t, 2, inv.refetches())
}

func TestDispatcherCloseCancelsPending(t *testing.T) {
	inv := &countingInvalidator{}
	s := &manualScheduler{}
	d := NewDispatcher(inv, s, 50*time.Millisecond)

	d.OnNotification("telegram_message", Notification{Channel: "telegram_message_changes"})
	require.Len(t, s.pending(), 1)
	stale := s.pending()[0]

	d.Close()
	assert.Empty(t, s.pending())
	stale.f()
	assert.Equal(t, 0, inv.refetches())

	assert.False(t, d.OnNotification("telegram_message", Notification{Channel: "telegram_message_changes"}))
	assert.Empty(t, s.pending())
}

func TestDispatcherRealTimersDebounce(t *testing.T) {
	inv := &countingInvalidator{}
	d := NewDispatcher(inv, nil, 100*time.Millisecond)
	defer d.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		d.OnNotification("tg_objects", Notification{Channel: "tg_objects_changes"})
		time.Sleep(10 * time.Millisecond)
	}
	if time.Since(start) < 100*time.Millisecond {
		assert.Equal(t, 0, inv.refetches())
	}

	require.Eventually(t, func() bool { return inv.refetches() >= 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
