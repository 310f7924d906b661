package calibration

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/chute.report/internal/fsutil"
)

func memStore() (*Store, *fsutil.MemoryFileSystem) {
	m := fsutil.NewMemoryFileSystem()
	return &Store{Path: "/var/lib/chute/calibration.json", FS: m}, m
}

func TestStoreLoadMissing(t *testing.T) {
	s, _ := memStore()
	d, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), d)
}

func TestStoreSaveLoad(t *testing.T) {
	s, m := memStore()
	want := Data{EmptyDistance: 120.5, FullDistance: 18.25, AngleWindow: [2]float64{5, 40}, Calibrated: true}
	require.NoError(t, s.Save(want))
	assert.False(t, m.Exists(s.Path+".tmp"))

	got, err := s.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreFileFormat(t *testing.T) {
	s, m := memStore()
	require.NoError(t, s.Save(Data{EmptyDistance: 100, FullDistance: 10, AngleWindow: [2]float64{0, 30}, Calibrated: true}))

	raw, err := m.ReadFile(s.Path)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, 100.0, fields["empty_distance"])
	assert.Equal(t, 10.0, fields["full_distance"])
	assert.Equal(t, []any{0.0, 30.0}, fields["chute_angle_range"])
	assert.Equal(t, true, fields["calibrated"])
}

func TestStoreLoadPartialKeepsDefaults(t *testing.T) {
	s, m := memStore()
	require.NoError(t, m.WriteFile(s.Path, []byte(`{"empty_distance": 90}`), 0o644))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Data{EmptyDistance: 90, AngleWindow: [2]float64{0, 30}}, got)
}

func TestStoreLoadRejectsIncompleteCalibrated(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no distances", `{"calibrated": true}`},
		{"no empty", `{"calibrated": true, "full_distance": 10}`},
		{"no full", `{"calibrated": true, "empty_distance": 100}`},
		{"negative full", `{"calibrated": true, "empty_distance": 100, "full_distance": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := memStore()
			require.NoError(t, m.WriteFile(s.Path, []byte(tt.body), 0o644))

			got, err := s.Load()
			assert.ErrorIs(t, err, ErrIncomplete)
			assert.Equal(t, Default(), got)
		})
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	s, m := memStore()
	require.NoError(t, m.WriteFile(s.Path, []byte(`{"empty_distance": `), 0o644))

	got, err := s.Load()
	assert.Error(t, err)
	assert.Equal(t, Default(), got)
}

func TestStoreLoadReadError(t *testing.T) {
	s, m := memStore()
	m.ReadErr = errors.New("io")
	got, err := s.Load()
	assert.Error(t, err)
	assert.Equal(t, Default(), got)
}

func TestStoreSaveRenameFailureCleansUp(t *testing.T) {
	s, m := memStore()
	m.RenameErr = errors.New("cross-device")
	assert.Error(t, s.Save(Default()))
	assert.False(t, m.Exists(s.Path+".tmp"))
	assert.False(t, m.Exists(s.Path))
}

func TestStoreClear(t *testing.T) {
	s, m := memStore()
	require.NoError(t, s.Save(Data{Calibrated: true}))
	require.NoError(t, s.Clear())
	assert.False(t, m.Exists(s.Path))

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestStoreOnDisk(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "cal.json"))
	want := Data{EmptyDistance: 80, FullDistance: 20, AngleWindow: [2]float64{0, 30}, Calibrated: true}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.NoError(t, s.Clear())

	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}
