package observability

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLockSpanEmitsAcquireAndReleaseEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewLockTracker(logger).WithClock(func() time.Time { return current })

	span := tracker.Start("reward", "user", 42, "record_tournament_participation")
	current = current.Add(150 * time.Millisecond)
	span.Acquired()
	current = current.Add(2 * time.Second)
	span.Release()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var acquired map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &acquired))
	require.Equal(t, "lock_acquired", acquired["event"])
	require.Equal(t, "reward", acquired["pipeline"])
	require.Equal(t, "user", acquired["entity_type"])
	require.Equal(t, float64(42), acquired["entity_id"])
	require.Equal(t, "record_tournament_participation", acquired["caller"])
	require.Equal(t, 150.0, acquired["wait"], "wait is measured in milliseconds by the injected clock")

	var released map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &released))
	require.Equal(t, "lock_released", released["event"])
	require.Equal(t, 2000.0, released["held"])
}

func TestLockTrackerNilSafety(t *testing.T) {
	var tracker *LockTracker

	span := tracker.Start("sync", "license", 1, "noop")
	require.Nil(t, span)

	// Nil spans must absorb the full call sequence.
	span.Acquired()
	span.Release()
}

func TestLockSpanReleaseWithoutAcquire(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewLockTracker(logger).WithClock(func() time.Time { return current })

	span := tracker.Start("assessment", "license", 7, "create_assessment")
	current = current.Add(time.Second)
	span.Release()

	var released map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &released))
	require.Equal(t, "lock_released", released["event"])
	require.Equal(t, 1000.0, released["held"], "hold falls back to the start time when never acquired")
}
