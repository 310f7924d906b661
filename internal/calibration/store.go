package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/banshee-data/chute.report/internal/fsutil"
)

// ErrIncomplete is returned by Load for a snapshot that claims to be
// calibrated without a positive empty and full distance.
var ErrIncomplete = errors.New("calibration: marked calibrated without both reference distances")

// Store persists a calibration snapshot as a JSON file.
type Store struct {
	Path string
	FS   fsutil.FileSystem
}

// NewStore returns a Store for path on the OS filesystem.
func NewStore(path string) *Store {
	return &Store{Path: path, FS: fsutil.OSFileSystem{}}
}

// Load reads the snapshot. A missing file yields Default with a nil error;
// an unreadable, unparseable or incomplete one yields Default along with the
// error so the caller can log it.
func (s *Store) Load() (Data, error) {
	raw, err := s.FS.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read calibration %s: %w", s.Path, err)
	}

	d := Default()
	if err := json.Unmarshal(raw, &d); err != nil {
		return Default(), fmt.Errorf("parse calibration %s: %w", s.Path, err)
	}
	if d.Calibrated && (d.EmptyDistance <= 0 || d.FullDistance <= 0) {
		return Default(), fmt.Errorf("load calibration %s: %w", s.Path, ErrIncomplete)
	}
	return d, nil
}

// Save writes the snapshot, replacing any previous file.
func (s *Store) Save(d Data) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := s.FS.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := s.Path + ".tmp"
	if err := s.FS.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := s.FS.Rename(tmp, s.Path); err != nil {
		_ = s.FS.Remove(tmp)
		return fmt.Errorf("replace calibration: %w", err)
	}
	return nil
}

// Clear deletes the snapshot. A missing file is not an error.
func (s *Store) Clear() error {
	if err := s.FS.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove calibration: %w", err)
	}
	return nil
}
