// Command chute monitors a chute's fill level with a TF-Luna distance sensor
// and reports it on a tower light and over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/chute.report/internal/api"
	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/monitor"
	"github.com/banshee-data/chute.report/internal/monitoring"
	"github.com/banshee-data/chute.report/internal/serialport"
	"github.com/banshee-data/chute.report/internal/units"
	"github.com/banshee-data/chute.report/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to a yaml, json or toml config file")
	sensorPort  = flag.String("sensor-port", "", "Serial port of the distance sensor (overrides config)")
	lightPort   = flag.String("light-port", "", "Serial port of the tower light (overrides config)")
	calFile     = flag.String("calibration", "", "Calibration snapshot path (overrides config)")
	dbPath      = flag.String("db", "", "History database path (overrides config)")
	listen      = flag.String("listen", "", "HTTP listen address for start (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	simulate    = flag.Bool("simulate", false, "Use simulated sensor readings")
	noLight     = flag.Bool("no-light", false, "Do not drive the tower light")
	noDB        = flag.Bool("no-db", false, "Disable the history database")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

const (
	cmdCalibrateEmpty = "calibrate-empty"
	cmdCalibrateFull  = "calibrate-full"
	cmdStart          = "start"
	cmdStatus         = "status"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneInterval   = time.Hour
)

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: chute [flags] <command>\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  %-16s measure the empty chute (not persisted until calibrate-full)\n", cmdCalibrateEmpty)
	fmt.Fprintf(w, "  %-16s measure the full chute and save the calibration\n", cmdCalibrateFull)
	fmt.Fprintf(w, "  %-16s run the monitoring loop and HTTP API until interrupted\n", cmdStart)
	fmt.Fprintf(w, "  %-16s take one scan and print the result\n", cmdStatus)
	fmt.Fprintf(w, "\nFlags:\n")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, version.String())
}

func main() {
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if *showVersion {
		printVersion(os.Stdout)
		return
	}

	cmd := flag.Arg(0)
	if !knownCommand(cmd) {
		printUsage(os.Stdout)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chute: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger := monitoring.New(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, cfg, serialport.Open, logger, os.Stdout); err != nil {
		logger.Errorw("command failed", "command", cmd, "error", err)
		stop()
		os.Exit(1)
	}
}

func knownCommand(cmd string) bool {
	switch cmd {
	case cmdCalibrateEmpty, cmdCalibrateFull, cmdStart, cmdStatus:
		return true
	}
	return false
}

// applyFlags lays explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config) {
	if *sensorPort != "" {
		cfg.Sensor.Port = *sensorPort
	}
	if *lightPort != "" {
		cfg.Light.Port = *lightPort
	}
	if *calFile != "" {
		cfg.CalibrationFile = *calFile
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *simulate {
		cfg.Sensor.Simulate = true
	}
	if *noLight {
		cfg.Light.Disabled = true
	}
	if *noDB {
		cfg.DB.Path = ""
	}
}

// app holds everything a command needs; close releases it in reverse order.
type app struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	mon     *monitor.Monitor
	history *db.DB
}

func newApp(cfg *config.Config, open serialport.Opener, log *zap.SugaredLogger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	// History is optional; the chute is still watched without it.
	var rec monitor.Recorder
	if cfg.DB.Path != "" {
		history, err := db.NewDB(cfg.DB.Path)
		if err != nil {
			log.Warnw("history database unavailable, continuing without history", "path", cfg.DB.Path, "error", err)
		} else {
			a.history = history
			rec = history
		}
	}

	mon, err := monitor.New(monitor.Options{
		Source:   monitor.OpenSensor(cfg.Sensor, open, log),
		Light:    monitor.OpenLight(cfg.Light, open, log),
		Store:    calibration.NewStore(cfg.CalibrationFile),
		Recorder: rec,
		Config:   cfg.Monitor,
		Logger:   log,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.mon = mon
	return a, nil
}

func (a *app) close() {
	if a.mon != nil {
		if err := a.mon.Close(); err != nil {
			a.log.Warnw("failed to close monitor", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warnw("failed to close history database", "error", err)
		}
	}
}

func run(ctx context.Context, cmd string, cfg *config.Config, open serialport.Opener, log *zap.SugaredLogger, out io.Writer) error {
	a, err := newApp(cfg, open, monitoring.OrNop(log))
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case cmdCalibrateEmpty:
		return a.calibrate(ctx, out, a.mon.CalibrateEmpty)
	case cmdCalibrateFull:
		return a.calibrate(ctx, out, a.mon.CalibrateFull)
	case cmdStatus:
		return a.status(ctx, out)
	case cmdStart:
		return a.start(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) calibrate(ctx context.Context, out io.Writer, fn func(context.Context) (calibration.Result, error)) error {
	res, err := fn(ctx)
	if err != nil {
		fmt.Fprintf(out, "calibration succeeded: false (%v)\n", err)
		return err
	}
	fmt.Fprintf(out, "calibration succeeded: true (mean %.2f %s from %d of %d readings)\n",
		units.ConvertDistance(res.Mean, a.cfg.Units), a.cfg.Units, res.Valid, res.Total)
	return nil
}

func (a *app) status(ctx context.Context, out io.Writer) error {
	snap, err := a.mon.Scan(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// start runs the loop, and the HTTP API when a listen address is set, until
// ctx is cancelled.
func (a *app) start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mon.Start()
	a.log.Infow("monitoring started", "simulated", a.mon.Simulated(), "scan_interval", a.mon.Config().ScanInterval)

	var wg sync.WaitGroup
	if a.history != nil && a.cfg.DB.Retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pruneLoop(ctx)
		}()
	}

	var srvErr error
	if a.cfg.Listen != "" {
		srvErr = a.serve(ctx)
	} else {
		<-ctx.Done()
	}

	cancel()
	wg.Wait()
	a.mon.Stop()
	a.log.Info("monitoring stopped")
	return srvErr
}

func (a *app) handler() (http.Handler, error) {
	var history api.History
	if a.history != nil {
		history = a.history
	}
	s := api.NewServer(a.mon, history, a.cfg.Units, a.log)
	mux := s.ServeMux()
	s.AttachAdminRoutes(mux)
	if a.history != nil {
		if err := a.history.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return api.LoggingMiddleware(a.log, mux), nil
}

func (a *app) serve(ctx context.Context) error {
	h, err := a.handler()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("HTTP server listening", "addr", a.cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Warnw("HTTP server shutdown failed", "error", err)
		server.Close()
	}
	return nil
}

func (a *app) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		a.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *app) prune(ctx context.Context) {
	n, err := a.history.PruneScans(ctx, time.Now().Add(-a.cfg.DB.Retention))
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warnw("failed to prune scan history", "error", err)
		}
		return
	}
	if n > 0 {
		a.log.Infow("pruned scan history", "removed", n, "retention", a.cfg.DB.Retention)
	}
}
