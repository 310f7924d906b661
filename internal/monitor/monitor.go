// Package monitor ties the distance sensor, calibration and classifier into
// a periodically scanned chute status, and drives the indicator light.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/classifier"
	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/light"
	"github.com/banshee-data/chute.report/internal/monitoring"
	"github.com/banshee-data/chute.report/internal/sensor"
	"github.com/banshee-data/chute.report/internal/timeutil"
)

// DefaultFaultCooldown is the pause after a failed cycle.
const DefaultFaultCooldown = 5 * time.Second

var (
	// ErrNoHardware is returned by calibration when only simulated samples
	// are available.
	ErrNoHardware = errors.New("monitor: no sensor attached")
	// ErrClosed is returned by operations on a closed Monitor.
	ErrClosed = errors.New("monitor: closed")
)

// Recorder keeps a history of scans and calibrations. *db.DB implements it.
type Recorder interface {
	RecordScan(ctx context.Context, r db.ScanRecord) (string, error)
	RecordCalibration(ctx context.Context, r db.CalibrationRecord) (string, error)
}

// Options configures a Monitor. Only Source is required.
type Options struct {
	Source sensor.Source
	// Light defaults to light.Disabled.
	Light light.Light
	// Store persists calibration; nil keeps calibration in memory only.
	Store *calibration.Store
	// Calibration is the initial calibration when Store is nil.
	Calibration *calibration.Data
	// Recorder is optional.
	Recorder Recorder
	Config   config.MonitorConfig
	Clock    timeutil.Clock
	Logger   *zap.SugaredLogger
	// FaultCooldown defaults to DefaultFaultCooldown.
	FaultCooldown time.Duration
	// CalibrationPasses defaults to calibration.DefaultPasses.
	CalibrationPasses int
}

// Snapshot is a self-consistent view of the monitor state.
type Snapshot struct {
	Status          classifier.Status `json:"status"`
	Confidence      float64           `json:"confidence"`
	LastScan        time.Time         `json:"last_scan"`
	ConsecutiveFull int               `json:"consecutive_full_readings"`
	RawDistance     float64           `json:"raw_distance"`
	Calibrated      bool              `json:"calibrated"`
	Running         bool              `json:"running"`
	Simulated       bool              `json:"simulated"`
}

// Monitor owns the sensor and light for the life of the process.
//
// Lock order is hwMu, then calMu, then stateMu. hwMu serialises every use
// of the sensor and every classification cycle; stateMu only guards the
// published snapshot so readers never wait on hardware.
type Monitor struct {
	source        sensor.Source
	light         light.Light
	store         *calibration.Store
	recorder      Recorder
	clock         timeutil.Clock
	log           *zap.SugaredLogger
	faultCooldown time.Duration
	passes        int

	cfg atomic.Pointer[config.MonitorConfig]

	hwMu sync.Mutex
	hyst classifier.Hysteresis

	calMu sync.RWMutex
	cal   calibration.Data

	stateMu sync.RWMutex
	state   Snapshot

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
}

// New builds a Monitor. Calibration is loaded from opts.Store when set; a
// load failure is logged and the defaults are used.
func New(opts Options) (*Monitor, error) {
	if opts.Source == nil {
		return nil, errors.New("monitor: source is required")
	}
	cfg := opts.Config
	if cfg == (config.MonitorConfig{}) {
		cfg = config.DefaultMonitorConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Monitor{
		source:        opts.Source,
		light:         opts.Light,
		store:         opts.Store,
		recorder:      opts.Recorder,
		clock:         opts.Clock,
		log:           monitoring.OrNop(opts.Logger),
		faultCooldown: opts.FaultCooldown,
		passes:        opts.CalibrationPasses,
		state:         Snapshot{Status: classifier.Unknown},
	}
	if m.light == nil {
		m.light = light.Disabled{}
	}
	if m.clock == nil {
		m.clock = timeutil.RealClock{}
	}
	if m.faultCooldown <= 0 {
		m.faultCooldown = DefaultFaultCooldown
	}
	if m.passes <= 0 {
		m.passes = calibration.DefaultPasses
	}
	m.cfg.Store(&cfg)
	// Until the first cycle, last_scan reports when monitoring was set up.
	m.state.LastScan = m.clock.Now().UTC()

	switch {
	case m.store != nil:
		cal, err := m.store.Load()
		if err != nil {
			m.log.Errorw("failed to load calibration, using defaults", "path", m.store.Path, "error", err)
		}
		m.cal = cal
	case opts.Calibration != nil:
		m.cal = *opts.Calibration
	default:
		m.cal = calibration.Default()
	}
	return m, nil
}

// Simulated reports whether the monitor is running on synthetic samples.
func (m *Monitor) Simulated() bool { return m.source.Simulated() }

// Config returns the active loop configuration.
func (m *Monitor) Config() config.MonitorConfig { return *m.cfg.Load() }

// UpdateConfig applies p and returns the resulting configuration. The next
// cycle picks the new value up; an invalid patch changes nothing.
func (m *Monitor) UpdateConfig(p config.MonitorConfigPatch) (config.MonitorConfig, error) {
	for {
		cur := m.cfg.Load()
		next, err := p.Apply(*cur)
		if err != nil {
			return *cur, err
		}
		if m.cfg.CompareAndSwap(cur, &next) {
			m.log.Infow("monitor config updated",
				"scan_interval", next.ScanInterval,
				"inference_threshold", next.InferenceThreshold,
				"full_threshold", next.FullThreshold)
			return next, nil
		}
	}
}

// Calibration returns a copy of the current calibration.
func (m *Monitor) Calibration() calibration.Data {
	m.calMu.RLock()
	defer m.calMu.RUnlock()
	return m.cal
}

// Snapshot returns the latest published state.
func (m *Monitor) Snapshot() Snapshot {
	m.stateMu.RLock()
	s := m.state
	m.stateMu.RUnlock()

	s.Calibrated = m.Calibration().Calibrated
	s.Running = m.Running()
	s.Simulated = m.source.Simulated()
	return s
}

func (m *Monitor) publish(s Snapshot) {
	m.stateMu.Lock()
	m.state = s
	m.stateMu.Unlock()
}

// Close stops the loop, turns the light off and releases the hardware.
// It is safe to call more than once.
func (m *Monitor) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.Stop()

		m.hwMu.Lock()
		defer m.hwMu.Unlock()
		err = errors.Join(m.source.Close(), m.light.Close())
		if err != nil {
			m.log.Warnw("error releasing hardware", "error", err)
		}
		m.log.Info("chute monitor closed")
	})
	return err
}
