package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/monitor"
	"github.com/banshee-data/chute.report/internal/serialport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	dir := t.TempDir()
	cfg.Sensor.Simulate = true
	cfg.Light.Disabled = true
	cfg.CalibrationFile = filepath.Join(dir, "calibration.json")
	cfg.DB.Path = filepath.Join(dir, "chute.db")
	cfg.Listen = ""
	return cfg
}

func failingOpener() serialport.Opener {
	open, _ := serialport.NewMockOpener(nil, errors.New("no such device"))
	return open
}

func TestKnownCommand(t *testing.T) {
	for _, cmd := range []string{"calibrate-empty", "calibrate-full", "start", "status"} {
		if !knownCommand(cmd) {
			t.Errorf("knownCommand(%q) = false", cmd)
		}
	}
	for _, cmd := range []string{"", "help", "calibrate"} {
		if knownCommand(cmd) {
			t.Errorf("knownCommand(%q) = true", cmd)
		}
	}
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	out := buf.String()
	for _, want := range []string{"calibrate-empty", "calibrate-full", "start", "status", "-sensor-port"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage missing %q:\n%s", want, out)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	saved := []*string{sensorPort, lightPort, calFile, dbPath, listen, logLevel}
	old := make([]string, len(saved))
	for i, p := range saved {
		old[i] = *p
	}
	oldSim, oldNoLight, oldNoDB := *simulate, *noLight, *noDB
	t.Cleanup(func() {
		for i, p := range saved {
			*p = old[i]
		}
		*simulate, *noLight, *noDB = oldSim, oldNoLight, oldNoDB
	})

	*sensorPort = "/dev/serial0"
	*listen = "127.0.0.1:9000"
	*simulate = true
	*noDB = true

	cfg := &config.Config{
		Sensor:          config.SensorConfig{Port: "/dev/ttyAMA0"},
		Light:           config.LightConfig{Port: "/dev/ttyUSB0"},
		CalibrationFile: "chute_calibration.json",
		DB:              config.DBConfig{Path: "chute.db"},
		Listen:          ":8080",
		LogLevel:        "info",
	}
	applyFlags(cfg)

	want := &config.Config{
		Sensor:          config.SensorConfig{Port: "/dev/serial0", Simulate: true},
		Light:           config.LightConfig{Port: "/dev/ttyUSB0"},
		CalibrationFile: "chute_calibration.json",
		DB:              config.DBConfig{Path: ""},
		Listen:          "127.0.0.1:9000",
		LogLevel:        "info",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("applyFlags mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStatusPrintsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	if err := run(context.Background(), cmdStatus, cfg, failingOpener(), nil, &out); err != nil {
		t.Fatalf("run status: %v", err)
	}

	var snap monitor.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out.String())
	}
	// Not calibrated, so the scheduled scan does not touch the sensor.
	if snap.Status != "unknown" {
		t.Errorf("status = %q, want unknown", snap.Status)
	}
	if !snap.Simulated {
		t.Error("expected simulated snapshot")
	}
	if !strings.Contains(out.String(), "\n  \"status\"") {
		t.Errorf("expected indented output, got:\n%s", out.String())
	}

	history, err := db.NewDB(cfg.DB.Path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer history.Close()
	scans, err := history.RecentScans(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentScans: %v", err)
	}
	if len(scans) != 1 {
		t.Errorf("recorded %d scans, want 1", len(scans))
	}
}

func TestRunContinuesWithoutHistory(t *testing.T) {
	cfg := testConfig(t)
	// A regular file where a directory is expected cannot hold a database.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg.DB.Path = filepath.Join(blocker, "sub", "chute.db")

	var out bytes.Buffer
	if err := run(context.Background(), cmdStatus, cfg, failingOpener(), nil, &out); err != nil {
		t.Fatalf("run status: %v", err)
	}
	var snap monitor.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out.String())
	}
	if snap.LastScan.IsZero() {
		t.Error("expected a scan to have been taken")
	}
}

func TestRunStartWithoutHistory(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg.DB.Path = filepath.Join(blocker, "chute.db")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := run(ctx, cmdStart, cfg, failingOpener(), nil, &bytes.Buffer{}); err != nil {
		t.Fatalf("start returned %v", err)
	}
}

func TestRunCalibrateWithoutHardware(t *testing.T) {
	for _, cmd := range []string{cmdCalibrateEmpty, cmdCalibrateFull} {
		t.Run(cmd, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.DB.Path = ""
			var out bytes.Buffer
			err := run(context.Background(), cmd, cfg, failingOpener(), nil, &out)
			if !errors.Is(err, monitor.ErrNoHardware) {
				t.Fatalf("err = %v, want ErrNoHardware", err)
			}
			if !strings.Contains(out.String(), "calibration succeeded: false") {
				t.Errorf("unexpected output %q", out.String())
			}
		})
	}
}

func TestRunStartStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cmdStart, cfg, failingOpener(), nil, &bytes.Buffer{}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("start did not return after cancel")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Path = ""
	if err := run(context.Background(), "explode", cfg, failingOpener(), nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	if !strings.HasPrefix(buf.String(), "chute dev") {
		t.Errorf("unexpected version line %q", buf.String())
	}
}
