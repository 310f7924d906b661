package monitor

import (
	"context"
	"fmt"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/classifier"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/sensor"
)

// Scan runs one scheduled-style cycle: an uncalibrated monitor does not
// touch the sensor and publishes unknown.
func (m *Monitor) Scan(ctx context.Context) (Snapshot, error) {
	return m.cycle(ctx, false)
}

// ForceScan runs one cycle outside the schedule, reading the sensor even
// when uncalibrated so the raw distance is visible.
func (m *Monitor) ForceScan(ctx context.Context) (Snapshot, error) {
	return m.cycle(ctx, true)
}

// cycle acquires, classifies, publishes, signals and records, in that
// order, while holding the hardware lock.
func (m *Monitor) cycle(ctx context.Context, forced bool) (Snapshot, error) {
	if m.closed.Load() {
		return Snapshot{}, ErrClosed
	}

	m.hwMu.Lock()
	defer m.hwMu.Unlock()

	cal := m.Calibration()
	cfg := m.Config()

	var s sensor.Sample
	if forced || cal.Calibrated {
		var err error
		if s, err = m.readChute(ctx, cal); err != nil {
			return Snapshot{}, fmt.Errorf("acquire: %w", err)
		}
	}

	raw := classifier.Classify(s, cal, cfg.FullThreshold)
	status := m.hyst.Observe(raw, cfg.InferenceThreshold)
	now := m.clock.Now().UTC()

	m.publish(Snapshot{
		Status:          status,
		Confidence:      s.Confidence,
		LastScan:        now,
		ConsecutiveFull: m.hyst.Consecutive(),
		RawDistance:     s.Distance,
	})

	color := classifier.LightColor(status)
	if err := m.light.SetColor(color); err != nil {
		m.log.Warnw("failed to set light", "color", color, "error", err)
	}

	m.log.Infow("chute status",
		"status", status,
		"distance", s.Distance,
		"confidence", s.Confidence,
		"consecutive_full", m.hyst.Consecutive(),
		"forced", forced)

	if m.recorder != nil {
		_, err := m.recorder.RecordScan(ctx, db.ScanRecord{
			Status:          string(status),
			Confidence:      s.Confidence,
			RawDistance:     s.Distance,
			ConsecutiveFull: m.hyst.Consecutive(),
			Forced:          forced,
			ScannedAt:       now,
		})
		if err != nil {
			m.log.Warnw("failed to record scan", "error", err)
		}
	}
	return m.Snapshot(), nil
}

// readChute takes one sample. Sources that sweep a bearing range are
// reduced to the mean of the readings inside the chute window.
func (m *Monitor) readChute(ctx context.Context, cal calibration.Data) (sensor.Sample, error) {
	sw, ok := m.source.(sensor.Sweeper)
	if !ok {
		return m.source.Acquire(ctx)
	}
	samples, err := sw.Sweep(ctx)
	if err != nil {
		return sensor.Sample{}, err
	}
	s, _ := calibration.MeanInWindow(cal, samples)
	return s, nil
}
