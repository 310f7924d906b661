package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/config"
	"github.com/banshee-data/chute.report/internal/db"
	"github.com/banshee-data/chute.report/internal/httputil"
	"github.com/banshee-data/chute.report/internal/monitor"
	"github.com/banshee-data/chute.report/internal/units"
)

const maxConfigBody = 64 << 10

// statusResponse is a snapshot with the distance in display units.
type statusResponse struct {
	monitor.Snapshot
	Units string `json:"units"`
}

type calibrationResponse struct {
	Success  bool    `json:"success"`
	Kind     string  `json:"kind"`
	Distance float64 `json:"distance"`
	Valid    int     `json:"valid_readings"`
	Total    int     `json:"total_readings"`
	Units    string  `json:"units"`
}

type configResponse struct {
	ScanInterval       float64    `json:"scan_interval"`
	InferenceThreshold int        `json:"inference_threshold"`
	FullThreshold      float64    `json:"full_threshold"`
	Calibrated         bool       `json:"calibrated"`
	EmptyDistance      float64    `json:"empty_distance"`
	FullDistance       float64    `json:"full_distance"`
	AngleWindow        [2]float64 `json:"chute_angle_range"`
	Units              string     `json:"units"`
}

type historyResponse struct {
	Scans        []db.ScanRecord        `json:"scans"`
	Calibrations []db.CalibrationRecord `json:"calibrations"`
	Units        string                 `json:"units"`
}

// displayUnits returns the ?units= override or the server default.
func (s *Server) displayUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValid(u) {
		return "", fmt.Errorf("invalid 'units' parameter %q: expected one of %s", u, units.GetValidUnitsString())
	}
	return u, nil
}

func (s *Server) writeSnapshot(w http.ResponseWriter, snap monitor.Snapshot, u string) {
	snap.RawDistance = units.ConvertDistance(snap.RawDistance, u)
	httputil.WriteJSONOK(w, statusResponse{Snapshot: snap, Units: u})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.displayUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.writeSnapshot(w, s.mon.Snapshot(), u)
}

func (s *Server) forceScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.displayUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	snap, err := s.mon.ForceScan(r.Context())
	if err != nil {
		s.log.Errorw("forced scan failed", "error", err)
		httputil.InternalServerError(w, fmt.Sprintf("scan failed: %v", err))
		return
	}
	s.writeSnapshot(w, snap, u)
}

func (s *Server) startMonitoring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mon.Start()
	httputil.WriteJSONOK(w, map[string]bool{"success": true, "running": s.mon.Snapshot().Running})
}

func (s *Server) stopMonitoring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mon.Stop()
	httputil.WriteJSONOK(w, map[string]bool{"success": true, "running": s.mon.Snapshot().Running})
}

func (s *Server) calibrate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		u, err := s.displayUnits(r)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}

		var res calibration.Result
		if kind == db.CalibrationFull {
			res, err = s.mon.CalibrateFull(r.Context())
		} else {
			res, err = s.mon.CalibrateEmpty(r.Context())
		}
		switch {
		case errors.Is(err, monitor.ErrNoHardware):
			httputil.WriteFailure(w, http.StatusServiceUnavailable, err.Error())
			return
		case errors.Is(err, calibration.ErrNoReadings):
			httputil.WriteFailure(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
			return
		}

		httputil.WriteJSONOK(w, calibrationResponse{
			Success:  true,
			Kind:     kind,
			Distance: units.ConvertDistance(res.Mean, u),
			Valid:    res.Valid,
			Total:    res.Total,
			Units:    u,
		})
	}
}

func (s *Server) clearCalibration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.mon.ClearCalibration(); err != nil {
		httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"success": true})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.showConfig(w, r)
	case http.MethodPost:
		s.updateConfig(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) configView(cfg config.MonitorConfig, u string) configResponse {
	cal := s.mon.Calibration()
	return configResponse{
		ScanInterval:       cfg.ScanInterval.Seconds(),
		InferenceThreshold: cfg.InferenceThreshold,
		FullThreshold:      cfg.FullThreshold,
		Calibrated:         cal.Calibrated,
		EmptyDistance:      units.ConvertDistance(cal.EmptyDistance, u),
		FullDistance:       units.ConvertDistance(cal.FullDistance, u),
		AngleWindow:        cal.AngleWindow,
		Units:              u,
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	u, err := s.displayUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.configView(s.mon.Config(), u))
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	u, err := s.displayUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var patch config.MonitorConfigPatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBody)).Decode(&patch); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if patch.Empty() {
		httputil.BadRequest(w, "no recognised fields: expected scan_interval, inference_threshold or full_threshold")
		return
	}

	cfg, err := s.mon.UpdateConfig(patch)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, struct {
		Success bool `json:"success"`
		configResponse
	}{true, s.configView(cfg, u)})
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
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
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	scans, err := s.history.RecentScans(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve scans: %v", err))
		return
	}
	cals, err := s.history.RecentCalibrations(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve calibrations: %v", err))
		return
	}

	for i := range scans {
		scans[i].RawDistance = units.ConvertDistance(scans[i].RawDistance, u)
	}
	for i := range cals {
		cals[i].MeanDistance = units.ConvertDistance(cals[i].MeanDistance, u)
	}
	httputil.WriteJSONOK(w, historyResponse{Scans: scans, Calibrations: cals, Units: u})
}

func (s *Server) listSerialPorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	ports, err := s.ListPorts()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list serial ports: %v", err))
		return
	}
	if ports == nil {
		ports = []string{}
	}
	httputil.WriteJSONOK(w, map[string][]string{"ports": ports})
}
