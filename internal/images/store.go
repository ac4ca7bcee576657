package images

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store is the local image directory, keyed by galaxy name.
type Store struct {
	Dir string
}

// NewStore creates dir if needed and checks that it is a writable directory
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create or access directory %s: %w", dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".bargal-probe-*")
	if err != nil {
		return nil, fmt.Errorf("insufficient permissions for directory %s: %w", dir, err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	return &Store{Dir: dir}, nil
}

// FileName returns the cache file name for a galaxy. band is empty for
// composites and cubes.
func FileName(galaxy string, ra, dec float64, format Format, band string) string {
	base := sanitizeName(galaxy)
	if base == "" {
		base = "cutout_ra" + formatCoord(ra) + "_dec" + formatCoord(dec)
	}
	if band != "" {
		return base + "." + band + format.Ext()
	}
	return base + format.Ext()
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.NewReplacer("/", "_", "\\", "_", string(filepath.Separator), "_").Replace(name)
}

func formatCoord(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Path returns the full path of a cached file
func (s *Store) Path(file string) string {
	return filepath.Join(s.Dir, file)
}

// Has reports whether file exists in the store
func (s *Store) Has(file string) bool {
	info, err := os.Stat(s.Path(file))
	return err == nil && info.Mode().IsRegular()
}

// Load reads a cached file
func (s *Store) Load(file string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(file))
	if err != nil {
		return nil, fmt.Errorf("failed to read cached image: %w", err)
	}
	return data, nil
}

// Save writes data to a temporary file and renames it into place, so readers
// never observe a partially written image.
func (s *Store) Save(file string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(s.Dir, "."+file+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	path := s.Path(file)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to store image file: %w", err)
	}

	return path, nil
}
