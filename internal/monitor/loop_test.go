package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/chute.report/internal/classifier"
)

const waitFor = 2 * time.Second

// waitForSleep blocks until the loop has asked the clock for n waits.
func waitForSleep(t *testing.T, h *harness, n int) []time.Duration {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.clock.Waits()) >= n && h.clock.Pending() > 0
	}, waitFor, time.Millisecond)
	return h.clock.Waits()
}

func TestStartStopIdempotent(t *testing.T) {
	h := newHarness(t, &calibrated, at(20))

	h.m.Stop()
	assert.False(t, h.m.Running())

	h.m.Start()
	h.m.Start()
	assert.True(t, h.m.Running())
	waitForSleep(t, h, 1)
	assert.Equal(t, 1, h.src.Calls())

	h.m.Stop()
	h.m.Stop()
	assert.False(t, h.m.Running())
	assert.False(t, h.m.Snapshot().Running)

	// A restarted loop scans again.
	h.m.Start()
	waitForSleep(t, h, 2)
	h.m.Stop()
	assert.Equal(t, 2, h.src.Calls())
}

func TestLoopSleepsScanInterval(t *testing.T) {
	h := newHarness(t, &calibrated, at(20))
	h.m.Start()
	defer h.m.Stop()

	waits := waitForSleep(t, h, 1)
	assert.Equal(t, time.Second, waits[0])
	assert.Equal(t, 1, h.src.Calls())

	h.clock.Advance(time.Second)
	waits = waitForSleep(t, h, 2)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
	assert.Equal(t, 2, h.src.Calls())
	assert.True(t, h.m.Snapshot().Running)
}

func TestLoopPicksUpNewInterval(t *testing.T) {
	h := newHarness(t, &calibrated, at(20))
	interval := 0.25
	_, err := h.m.UpdateConfig(configPatchInterval(interval))
	require.NoError(t, err)

	h.m.Start()
	defer h.m.Stop()
	waits := waitForSleep(t, h, 1)
	assert.Equal(t, 250*time.Millisecond, waits[0])
}

func TestLoopFaultCooldown(t *testing.T) {
	h := newHarness(t, &calibrated, at(20))
	h.src.errs = map[int]error{0: errors.New("bus error")}
	h.m.Start()
	defer h.m.Stop()

	waits := waitForSleep(t, h, 1)
	assert.Equal(t, DefaultFaultCooldown, waits[0])
	assert.Equal(t, classifier.Unknown, h.m.Snapshot().Status)

	// Less than the cooldown does not wake the loop.
	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.src.Calls())

	h.clock.Advance(4 * time.Second)
	waits = waitForSleep(t, h, 2)
	assert.Equal(t, time.Second, waits[1])
	assert.Equal(t, classifier.Full, h.m.Snapshot().Status)
}

func TestLoopSurvivesPanic(t *testing.T) {
	h := newHarness(t, &calibrated, at(20))
	h.src.panicAt = map[int]bool{0: true}
	h.m.Start()
	defer h.m.Stop()

	waits := waitForSleep(t, h, 1)
	assert.Equal(t, DefaultFaultCooldown, waits[0])
	assert.True(t, h.m.Running())

	h.clock.Advance(DefaultFaultCooldown)
	waitForSleep(t, h, 2)
	assert.Equal(t, classifier.Full, h.m.Snapshot().Status)
}

func TestStopInterruptsSleep(t *testing.T) {
	h := newHarness(t, &calibrated, at(20))
	h.src.errs = map[int]error{0: errors.New("bus error")}
	h.m.Start()
	waitForSleep(t, h, 1)

	done := make(chan struct{})
	go func() {
		h.m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Stop did not return while the loop was cooling down")
	}
}
