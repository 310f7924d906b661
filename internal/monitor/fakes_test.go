package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/banshee-data/chute.report/internal/classifier"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/sensor"
)

// fakeSource replays samples in order, then repeats the last one. An entry
// in errs (by call index) is returned instead of the sample.
type fakeSource struct {
	mu        sync.Mutex
	samples   []sensor.Sample
	errs      map[int]error
	panicAt   map[int]bool
	simulated bool
	calls     int
	closed    int
}

func (f *fakeSource) Acquire(context.Context) (sensor.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if f.panicAt[i] {
		panic("sensor exploded")
	}
	if err := f.errs[i]; err != nil {
		return sensor.Sample{}, err
	}
	if len(f.samples) == 0 {
		return sensor.Sample{}, nil
	}
	if i >= len(f.samples) {
		i = len(f.samples) - 1
	}
	return f.samples[i], nil
}

func (f *fakeSource) Simulated() bool { return f.simulated }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// sweepSource adds a bearing sweep to fakeSource.
type sweepSource struct {
	fakeSource
	sweep []sensor.AngularSample
}

func (s *sweepSource) Sweep(context.Context) ([]sensor.AngularSample, error) {
	return s.sweep, nil
}

type fakeLight struct {
	mu     sync.Mutex
	colors []classifier.Color
	closed int
	err    error
}

func (l *fakeLight) SetColor(c classifier.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colors = append(l.colors, c)
	return l.err
}

func (l *fakeLight) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

func (l *fakeLight) Colors() []classifier.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]classifier.Color(nil), l.colors...)
}

type fakeRecorder struct {
	mu           sync.Mutex
	scans        []db.ScanRecord
	calibrations []db.CalibrationRecord
	fail         bool
}

func (r *fakeRecorder) RecordScan(_ context.Context, s db.ScanRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", errors.New("disk full")
	}
	r.scans = append(r.scans, s)
	return "scan", nil
}

func (r *fakeRecorder) RecordCalibration(_ context.Context, c db.CalibrationRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", errors.New("disk full")
	}
	r.calibrations = append(r.calibrations, c)
	return "cal", nil
}
