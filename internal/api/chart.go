package api

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/httputil"
	"github.com/banshee-data/chute.report/internal/units"
)

// AttachAdminRoutes adds the chute state and distance chart to the tsweb
// debug index on mux.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Chute status", func() any { return s.mon.Snapshot().Status })
	debug.KVFunc("Monitoring", func() any { return s.mon.Snapshot().Running })
	debug.HandleFunc("chute-history", "Distance history chart", s.handleHistoryChart)
}

// handleHistoryChart plots recent scan distances against the calibrated
// empty and full lines.
func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		httputil.NotFound(w, "history is disabled")
		return
	}
	u, err := s.displayUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit := db.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	scans, err := s.history.RecentScans(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve scans: %v", err))
		return
	}
	// oldest on the left
	slices.Reverse(scans)

	cal := s.mon.Calibration()
	x := make([]string, 0, len(scans))
	dist := make([]opts.LineData, 0, len(scans))
	empty := make([]opts.LineData, 0, len(scans))
	full := make([]opts.LineData, 0, len(scans))
	for _, sc := range scans {
		x = append(x, sc.ScannedAt.UTC().Format(time.TimeOnly))
		dist = append(dist, opts.LineData{Value: units.ConvertDistance(sc.RawDistance, u), Name: string(sc.Status)})
		empty = append(empty, opts.LineData{Value: units.ConvertDistance(cal.EmptyDistance, u)})
		full = append(full, opts.LineData{Value: units.ConvertDistance(cal.FullDistance, u)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Chute Distance", Theme: "dark", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Chute distance", Subtitle: fmt.Sprintf("%d scans, %s", len(scans), u)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: u}),
	)
	line.SetXAxis(x).
		AddSeries("distance", dist).
		AddSeries("empty", empty, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})).
		AddSeries("full", full, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))

	page := components.NewPage()
	page.AddCharts(line)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
