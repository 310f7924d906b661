package monitor

import (
	"go.uber.org/zap"

	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/light"
	"github.com/banshee-data/chute.report/internal/monitoring"
	"github.com/banshee-data/chute.report/internal/sensor"
	"github.com/banshee-data/chute.report/internal/serialport"
)

// OpenSensor opens the configured distance sensor. When the port cannot be
// opened, or simulation is requested, it returns a Simulator instead.
func OpenSensor(cfg config.SensorConfig, open serialport.Opener, log *zap.SugaredLogger) sensor.Source {
	log = monitoring.OrNop(log)
	if cfg.Simulate {
		log.Info("sensor simulation enabled")
		return sensor.NewSimulator(nil)
	}

	opts, err := cfg.Serial.Normalize()
	if err == nil {
		var port serialport.SerialPorter
		if port, err = open(cfg.Port, opts); err == nil {
			log.Infow("distance sensor connected", "port", cfg.Port, "baud", opts.BaudRate)
			return sensor.NewDevice(port)
		}
	}
	log.Warnw("distance sensor not available, using simulated samples", "port", cfg.Port, "error", err)
	return sensor.NewSimulator(nil)
}

// OpenLight opens the configured tower light, or returns light.Disabled when
// it is turned off or cannot be initialised.
func OpenLight(cfg config.LightConfig, open serialport.Opener, log *zap.SugaredLogger) light.Light {
	log = monitoring.OrNop(log)
	if cfg.Disabled {
		log.Info("tower light disabled")
		return light.Disabled{}
	}

	opts, err := cfg.Serial.Normalize()
	if err != nil {
		log.Warnw("tower light not available, running without light control", "port", cfg.Port, "error", err)
		return light.Disabled{}
	}
	port, err := open(cfg.Port, opts)
	if err != nil {
		log.Warnw("tower light not available, running without light control", "port", cfg.Port, "error", err)
		return light.Disabled{}
	}
	tower, err := light.NewTower(port)
	if err != nil {
		_ = port.Close()
		log.Warnw("tower light not available, running without light control", "port", cfg.Port, "error", err)
		return light.Disabled{}
	}
	log.Infow("tower light initialized", "port", cfg.Port)
	return tower
}
