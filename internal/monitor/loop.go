package monitor

import (
	"context"
	"fmt"
	"time"
)

// Start launches the background scan loop. It is a no-op when already
// running or closed.
func (m *Monitor) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running || m.closed.Load() {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(m.stopCh, m.doneCh)
	m.log.Info("chute monitoring started")
}

// Stop signals the loop and waits for it to exit. An in-flight cycle is
// allowed to finish. It is safe to call when not running.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.runMu.Unlock()

	<-done
	m.log.Info("chute monitoring stopped")
}

// Running reports whether the loop has been started and not stopped.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

func (m *Monitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// Cycles are not cancelled by Stop; the decoder bounds each one.
	ctx := context.Background()
	for {
		select {
		case <-stop:
			return
		default:
		}

		wait := m.Config().ScanInterval
		if err := m.safeCycle(ctx); err != nil {
			m.log.Errorw("monitoring loop error", "error", err, "cooldown", m.faultCooldown)
			wait = m.faultCooldown
		}

		if !m.sleep(stop, wait) {
			return
		}
	}
}

// safeCycle runs one scheduled cycle, converting a panic into an error so
// the loop survives it.
func (m *Monitor) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
		}
	}()
	_, err = m.Scan(ctx)
	return err
}

// sleep waits d or until stop closes, reporting false on stop.
func (m *Monitor) sleep(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-m.clock.After(d):
		return true
	}
}
