package monitor

import (
	"context"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/db"
)

// CalibrateEmpty measures the empty-chute reference distance. The result is
// held in memory only; it is persisted by the next CalibrateFull.
func (m *Monitor) CalibrateEmpty(ctx context.Context) (calibration.Result, error) {
	res, err := m.collect(ctx, db.CalibrationEmpty)
	if err != nil {
		return res, err
	}

	m.calMu.Lock()
	m.cal.EmptyDistance = res.Mean
	m.calMu.Unlock()

	m.log.Infow("empty calibration", "distance", res.Mean, "valid", res.Valid, "total", res.Total)
	return res, nil
}

// CalibrateFull measures the full-chute reference distance, marks the
// monitor calibrated and persists the calibration. A pair that is not
// ordered empty > full is accepted with a warning.
func (m *Monitor) CalibrateFull(ctx context.Context) (calibration.Result, error) {
	res, err := m.collect(ctx, db.CalibrationFull)
	if err != nil {
		return res, err
	}

	m.calMu.Lock()
	m.cal.FullDistance = res.Mean
	m.cal.Calibrated = true
	cal := m.cal
	m.calMu.Unlock()

	m.log.Infow("full calibration", "distance", res.Mean, "valid", res.Valid, "total", res.Total)
	if !cal.Consistent() {
		m.log.Warnw("calibration is not ordered empty > full > 0; readings will classify at the extremes",
			"empty_distance", cal.EmptyDistance, "full_distance", cal.FullDistance)
	}
	m.persist(cal)
	return res, nil
}

// ClearCalibration deletes the persisted snapshot and restores the default
// calibration. If the snapshot cannot be removed nothing changes, so a
// failure never leaves memory and disk disagreeing.
func (m *Monitor) ClearCalibration() error {
	m.hwMu.Lock()
	defer m.hwMu.Unlock()

	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			m.log.Errorw("failed to remove calibration file", "path", m.store.Path, "error", err)
			return err
		}
	}

	m.calMu.Lock()
	m.cal = calibration.Default()
	m.calMu.Unlock()
	m.hyst.Reset()

	m.log.Info("calibration cleared")
	return nil
}

// collect performs the forced reads for one calibration pass. The sensor is
// read directly, bypassing the calibration gate and the angle window.
func (m *Monitor) collect(ctx context.Context, kind string) (calibration.Result, error) {
	if m.closed.Load() {
		return calibration.Result{}, ErrClosed
	}
	if m.source.Simulated() {
		m.log.Warnw("sensor not available for calibration", "kind", kind)
		return calibration.Result{}, ErrNoHardware
	}

	m.hwMu.Lock()
	res, err := calibration.Collect(ctx, m.source.Acquire, m.passes)
	m.hwMu.Unlock()
	if err != nil {
		m.log.Errorw("calibration failed", "kind", kind, "error", err)
		return res, err
	}

	if m.recorder != nil {
		_, rerr := m.recorder.RecordCalibration(ctx, db.CalibrationRecord{
			Kind:         kind,
			MeanDistance: res.Mean,
			Valid:        res.Valid,
			Total:        res.Total,
			CreatedAt:    m.clock.Now().UTC(),
		})
		if rerr != nil {
			m.log.Warnw("failed to record calibration", "error", rerr)
		}
	}
	return res, nil
}

func (m *Monitor) persist(cal calibration.Data) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(cal); err != nil {
		m.log.Errorw("failed to save calibration", "path", m.store.Path, "error", err)
		return
	}
	m.log.Infow("calibration saved", "path", m.store.Path)
}
