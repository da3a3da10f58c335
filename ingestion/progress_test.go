package ingestion

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Increment(false)
	tracker.Increment(false)
	tracker.Increment(true)
	tracker.Increment(false)

	elapsed := tracker.Elapsed()
	assert.Greater(t, elapsed, time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "4/4", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
	assert.Contains(t, output, "1 failed", "should count failures")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4)

	tracker.Start()
	tracker.Increment(false)
	tracker.Increment(false)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "2/4", "finish reports actual progress")
	assert.Contains(t, output, "\n", "finish should print newline")
}

func TestProgressTracker_BeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Increment(false)
	tracker.Finish()

	assert.Empty(t, buf.String(), "no output before Start")
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0)

	tracker.Start()
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "0/0", "should handle zero total")
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2)

	tracker.Start()
	tracker.Increment(false)
	tracker.Increment(false)
	tracker.Increment(false)

	output := buf.String()
	assert.Contains(t, output, "2/2", "current is capped at total")
	assert.NotContains(t, output, "3/2")
}
