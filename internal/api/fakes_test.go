package api

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/classifier"
	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/monitor"
)

type fakeMonitor struct {
	mu      sync.Mutex
	snap    monitor.Snapshot
	cal     calibration.Data
	cfg     config.MonitorConfig
	scanErr error
	calRes  calibration.Result
	calErr  error
	clrErr  error
	calls   []string
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{
		snap: monitor.Snapshot{Status: classifier.Unknown, LastScan: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)},
		cal:  calibration.Default(),
		cfg:  config.DefaultMonitorConfig(),
	}
}

func (f *fakeMonitor) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeMonitor) Snapshot() monitor.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeMonitor) Start() {
	f.record("start")
	f.mu.Lock()
	f.snap.Running = true
	f.mu.Unlock()
}

func (f *fakeMonitor) Stop() {
	f.record("stop")
	f.mu.Lock()
	f.snap.Running = false
	f.mu.Unlock()
}

func (f *fakeMonitor) ForceScan(context.Context) (monitor.Snapshot, error) {
	f.record("scan")
	return f.Snapshot(), f.scanErr
}

func (f *fakeMonitor) CalibrateEmpty(context.Context) (calibration.Result, error) {
	f.record("calibrate-empty")
	return f.calRes, f.calErr
}

func (f *fakeMonitor) CalibrateFull(context.Context) (calibration.Result, error) {
	f.record("calibrate-full")
	return f.calRes, f.calErr
}

func (f *fakeMonitor) ClearCalibration() error {
	f.record("clear")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clrErr != nil {
		return f.clrErr
	}
	f.cal = calibration.Default()
	return nil
}

func (f *fakeMonitor) Calibration() calibration.Data {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cal
}

func (f *fakeMonitor) Config() config.MonitorConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeMonitor) UpdateConfig(p config.MonitorConfigPatch) (config.MonitorConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := p.Apply(f.cfg)
	if err != nil {
		return f.cfg, err
	}
	f.cfg = next
	return next, nil
}

type fakeHistory struct {
	scans []db.ScanRecord
	cals  []db.CalibrationRecord
	err   error
	limit int
}

func (f *fakeHistory) RecentScans(_ context.Context, limit int) ([]db.ScanRecord, error) {
	f.limit = limit
	return append([]db.ScanRecord(nil), f.scans...), f.err
}

func (f *fakeHistory) RecentCalibrations(_ context.Context, limit int) ([]db.CalibrationRecord, error) {
	return append([]db.CalibrationRecord(nil), f.cals...), f.err
}
