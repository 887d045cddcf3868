// ABOUTME: Tests for the presence tracker
// ABOUTME: Verifies TTL expiry overrides declared intent and last-writer-wins updates

package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvailable_NoRecord(t *testing.T) {
	tr := NewTracker()
	ok, err := tr.Available()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailable_FreshHeartbeat(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(WithClock(func() time.Time { return clock }))

	tr.Set("op-1", true)
	ok, err := tr.Available()
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailable_StaleRecordOverridesOnlineFlag(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	tr := NewTracker(WithClock(now))

	tr.Set("op-1", true)

	// 40s without a heartbeat is past the 30s TTL even though online=true
	clock = clock.Add(40 * time.Second)
	ok, err := tr.Available()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailable_ExactlyAtTTLBoundary(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(WithClock(func() time.Time { return clock }), WithTTL(30*time.Second))

	tr.Set("op-1", true)
	clock = clock.Add(30 * time.Second)

	ok, err := tr.Available()
	assert.NoError(t, err)
	assert.False(t, ok, "window is strict: now-lastSeen must be < TTL")
}

func TestHeartbeat_RefreshesWithoutChangingIntent(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(WithClock(func() time.Time { return clock }))

	tr.Set("op-1", false)
	clock = clock.Add(10 * time.Second)
	tr.Heartbeat("op-1")

	rec := tr.Snapshot()
	assert.NotNil(t, rec)
	assert.False(t, rec.Online)
	assert.Equal(t, clock, rec.LastSeen)

	// A fresh heartbeat still means a human is around, whatever the flag says
	ok, err := tr.Available()
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestSet_LastWriterWins(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(WithClock(func() time.Time { return clock }))

	tr.Set("op-1", true)
	tr.Set("op-2", false)

	rec := tr.Snapshot()
	assert.Equal(t, "op-2", rec.OperatorID)
	assert.False(t, rec.Online)
}

func TestSnapshot_ReturnsCopy(t *testing.T) {
	tr := NewTracker()
	assert.Nil(t, tr.Snapshot())

	tr.Set("op-1", true)
	rec := tr.Snapshot()
	rec.OperatorID = "mutated"

	assert.Equal(t, "op-1", tr.Snapshot().OperatorID)
}
