package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Calibration kinds.
const (
	CalibrationEmpty = "empty"
	CalibrationFull  = "full"
)

// DefaultHistoryLimit caps history queries that do not set a limit.
const DefaultHistoryLimit = 100

// ScanRecord is one published monitoring cycle.
type ScanRecord struct {
	ID              string    `json:"scan_id"`
	Status          string    `json:"status"`
	Confidence      float64   `json:"confidence"`
	RawDistance     float64   `json:"raw_distance"`
	ConsecutiveFull int       `json:"consecutive_full_readings"`
	Forced          bool      `json:"forced"`
	ScannedAt       time.Time `json:"scanned_at"`
}

// CalibrationRecord is one successful calibration pass.
type CalibrationRecord struct {
	ID           string    `json:"calibration_id"`
	Kind         string    `json:"kind"`
	MeanDistance float64   `json:"mean_distance"`
	Valid        int       `json:"valid_readings"`
	Total        int       `json:"total_readings"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordScan inserts r, assigning an ID when r.ID is empty, and returns the ID.
func (db *DB) RecordScan(ctx context.Context, r ScanRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO scans (scan_id, status, confidence, raw_distance, consecutive_full, forced, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Confidence, r.RawDistance, r.ConsecutiveFull, r.Forced, r.ScannedAt.UTC().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record scan: %w", err)
	}
	return r.ID, nil
}

// RecordCalibration inserts r, assigning an ID when r.ID is empty.
func (db *DB) RecordCalibration(ctx context.Context, r CalibrationRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO calibrations (calibration_id, kind, mean_distance, valid_readings, total_readings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.MeanDistance, r.Valid, r.Total, r.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record calibration: %w", err)
	}
	return r.ID, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > 10*DefaultHistoryLimit {
		return 10 * DefaultHistoryLimit
	}
	return limit
}

// RecentScans returns up to limit scans, newest first.
func (db *DB) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT scan_id, status, confidence, raw_distance, consecutive_full, forced, scanned_at
		 FROM scans ORDER BY scanned_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []ScanRecord{}
	for rows.Next() {
		var (
			r      ScanRecord
			nanos  int64
			forced bool
		)
		if err := rows.Scan(&r.ID, &r.Status, &r.Confidence, &r.RawDistance, &r.ConsecutiveFull, &forced, &nanos); err != nil {
			return nil, err
		}
		r.Forced = forced
		r.ScannedAt = time.Unix(0, nanos).UTC()
		scans = append(scans, r)
	}
	return scans, rows.Err()
}

// RecentCalibrations returns up to limit calibration passes, newest first.
func (db *DB) RecentCalibrations(ctx context.Context, limit int) ([]CalibrationRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT calibration_id, kind, mean_distance, valid_readings, total_readings, created_at
		 FROM calibrations ORDER BY created_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CalibrationRecord{}
	for rows.Next() {
		var (
			r     CalibrationRecord
			nanos int64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.MeanDistance, &r.Valid, &r.Total, &nanos); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, nanos).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneScans deletes scans older than cutoff and returns how many were removed.
func (db *DB) PruneScans(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM scans WHERE scanned_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
