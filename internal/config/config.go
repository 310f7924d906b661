// Package config loads process configuration for the chute monitor.
//
// Values come from built-in defaults, then an optional config file
// (yaml, json or toml), then CHUTE_* environment variables. Nested keys map
// to environment names by replacing dots with underscores, so
// monitor.scan_interval is CHUTE_MONITOR_SCAN_INTERVAL.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/banshee-data/chute.report/internal/serialport"
	"github.com/banshee-data/chute.report/internal/units"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "CHUTE"

// SensorConfig locates the distance sensor.
type SensorConfig struct {
	Port     string                 `mapstructure:"port"`
	Simulate bool                   `mapstructure:"simulate"`
	Serial   serialport.PortOptions `mapstructure:",squash"`
}

// LightConfig locates the tower light.
type LightConfig struct {
	Port     string                 `mapstructure:"port"`
	Disabled bool                   `mapstructure:"disabled"`
	Serial   serialport.PortOptions `mapstructure:",squash"`
}

// DBConfig locates the history database. An empty path disables history.
// Scans older than Retention are pruned while monitoring; zero keeps them.
type DBConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// Config is the root process configuration.
type Config struct {
	Sensor          SensorConfig  `mapstructure:"sensor"`
	Light           LightConfig   `mapstructure:"light"`
	CalibrationFile string        `mapstructure:"calibration_file"`
	DB              DBConfig      `mapstructure:"db"`
	Listen          string        `mapstructure:"listen"`
	LogLevel        string        `mapstructure:"log_level"`
	Units           string        `mapstructure:"units"`
	Monitor         MonitorConfig `mapstructure:"monitor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sensor.port", "/dev/ttyAMA0")
	v.SetDefault("sensor.baud_rate", 115200)
	v.SetDefault("sensor.read_timeout", serialport.DefaultReadTimeout)
	v.SetDefault("sensor.simulate", false)

	v.SetDefault("light.port", "/dev/ttyUSB0")
	v.SetDefault("light.baud_rate", 9600)
	v.SetDefault("light.read_timeout", time.Second)
	v.SetDefault("light.disabled", false)

	v.SetDefault("calibration_file", "chute_calibration.json")
	v.SetDefault("db.path", "chute.db")
	v.SetDefault("db.retention", 30*24*time.Hour)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("units", units.Inches)

	d := DefaultMonitorConfig()
	v.SetDefault("monitor.scan_interval", d.ScanInterval)
	v.SetDefault("monitor.inference_threshold", d.InferenceThreshold)
	v.SetDefault("monitor.full_threshold", d.FullThreshold)
}

// New returns a viper instance carrying the defaults and env bindings.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) over the defaults and returns a validated
// Config.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if !units.IsValid(c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), c.Units)
	}
	if c.CalibrationFile == "" {
		return fmt.Errorf("calibration_file must be set")
	}
	if c.DB.Retention < 0 {
		return fmt.Errorf("db.retention must not be negative, got %s", c.DB.Retention)
	}
	if _, err := c.Sensor.Serial.Normalize(); err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	if !c.Light.Disabled {
		if _, err := c.Light.Serial.Normalize(); err != nil {
			return fmt.Errorf("light: %w", err)
		}
	}
	return c.Monitor.Validate()
}
