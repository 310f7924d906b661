package config

import (
	"fmt"
	"time"
)

// MonitorConfig controls the monitoring loop. A value is treated as
// immutable once handed to the monitor; updates replace it whole.
type MonitorConfig struct {
	ScanInterval       time.Duration `mapstructure:"scan_interval"`
	InferenceThreshold int           `mapstructure:"inference_threshold"`
	FullThreshold      float64       `mapstructure:"full_threshold"`
}

// DefaultMonitorConfig returns the stock loop settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ScanInterval:       time.Second,
		InferenceThreshold: 3,
		FullThreshold:      0.8,
	}
}

// Validate checks that the configuration values are valid.
func (c MonitorConfig) Validate() error {
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be positive, got %s", c.ScanInterval)
	}
	if c.InferenceThreshold < 1 {
		return fmt.Errorf("inference_threshold must be at least 1, got %d", c.InferenceThreshold)
	}
	if c.FullThreshold <= 0 || c.FullThreshold > 1 {
		return fmt.Errorf("full_threshold must be in (0, 1], got %f", c.FullThreshold)
	}
	return nil
}

// MonitorConfigPatch is the subset of MonitorConfig that may be changed at
// runtime. Nil fields are left unchanged.
type MonitorConfigPatch struct {
	ScanInterval       *float64 `json:"scan_interval,omitempty"` // seconds
	InferenceThreshold *int     `json:"inference_threshold,omitempty"`
	FullThreshold      *float64 `json:"full_threshold,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p MonitorConfigPatch) Empty() bool {
	return p.ScanInterval == nil && p.InferenceThreshold == nil && p.FullThreshold == nil
}

// Apply returns base with the patch applied, or an error if the result is
// invalid. base is never modified.
func (p MonitorConfigPatch) Apply(base MonitorConfig) (MonitorConfig, error) {
	next := base
	if p.ScanInterval != nil {
		next.ScanInterval = time.Duration(*p.ScanInterval * float64(time.Second))
	}
	if p.InferenceThreshold != nil {
		next.InferenceThreshold = *p.InferenceThreshold
	}
	if p.FullThreshold != nil {
		next.FullThreshold = *p.FullThreshold
	}
	if err := next.Validate(); err != nil {
		return base, err
	}
	return next, nil
}
