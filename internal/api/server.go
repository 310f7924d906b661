// Package api serves the chute monitor over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/monitor"
	"github.com/banshee-data/chute.report/internal/monitoring"
	"github.com/banshee-data/chute.report/internal/serialport"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Monitor is the part of *monitor.Monitor the API drives.
type Monitor interface {
	Snapshot() monitor.Snapshot
	Start()
	Stop()
	ForceScan(ctx context.Context) (monitor.Snapshot, error)
	CalibrateEmpty(ctx context.Context) (calibration.Result, error)
	CalibrateFull(ctx context.Context) (calibration.Result, error)
	ClearCalibration() error
	Calibration() calibration.Data
	Config() config.MonitorConfig
	UpdateConfig(p config.MonitorConfigPatch) (config.MonitorConfig, error)
}

// History is the read side of the scan database.
type History interface {
	RecentScans(ctx context.Context, limit int) ([]db.ScanRecord, error)
	RecentCalibrations(ctx context.Context, limit int) ([]db.CalibrationRecord, error)
}

type Server struct {
	mon     Monitor
	history History
	units   string
	log     *zap.SugaredLogger

	// ListPorts enumerates serial devices; replaceable in tests.
	ListPorts func() ([]string, error)
}

// NewServer builds a Server. history may be nil when the database is disabled.
func NewServer(mon Monitor, history History, units string, log *zap.SugaredLogger) *Server {
	return &Server{
		mon:       mon,
		history:   history,
		units:     units,
		log:       monitoring.OrNop(log),
		ListPorts: serialport.ListPorts,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(log *zap.SugaredLogger, next http.Handler) http.Handler {
	log = monitoring.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Infof(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/scan", s.forceScan)
	mux.HandleFunc("/api/start", s.startMonitoring)
	mux.HandleFunc("/api/stop", s.stopMonitoring)
	mux.HandleFunc("/api/calibrate/empty", s.calibrate(db.CalibrationEmpty))
	mux.HandleFunc("/api/calibrate/full", s.calibrate(db.CalibrationFull))
	mux.HandleFunc("/api/clear-calibration", s.clearCalibration)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/history", s.listHistory)
	mux.HandleFunc("/api/serial/ports", s.listSerialPorts)
	return mux
}
