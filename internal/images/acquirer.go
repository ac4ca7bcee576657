package images

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ludanortmun/bargal/internal/catalog"
)

// AcquisitionError wraps any failure to obtain a galaxy's image: network,
// malformed response, cache read or write.
type AcquisitionError struct {
	Galaxy string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %q: %v", e.Galaxy, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Acquirer resolves galaxy images from the local store, falling back to the
// remote source. Store may be nil, in which case nothing is cached.
type Acquirer struct {
	Source Source
	Store  *Store
}

// NewAcquirer creates an acquirer
func NewAcquirer(source Source, store *Store) *Acquirer {
	return &Acquirer{Source: source, Store: store}
}

// Acquire returns the bands for rec and the local path of the file that holds
// them (empty when no store is configured). perBand only applies to JPEG;
// FITS cubes always carry every band in one file.
func (a *Acquirer) Acquire(ctx context.Context, rec catalog.Record, format Format, perBand bool) (*MultiBandImage, string, error) {
	img, path, err := a.acquire(ctx, rec, format, perBand)
	if err != nil {
		return nil, "", &AcquisitionError{Galaxy: rec.Name, Err: err}
	}
	return img, path, nil
}

func (a *Acquirer) acquire(ctx context.Context, rec catalog.Record, format Format, perBand bool) (*MultiBandImage, string, error) {
	if !finite(rec.RA) || !finite(rec.Dec) {
		return nil, "", fmt.Errorf("invalid coordinates ra=%v dec=%v", rec.RA, rec.Dec)
	}

	switch format {
	case FormatFITS:
		if perBand {
			slog.Debug("Per-band mode does not apply to FITS cubes, ignoring", "galaxy", rec.Name)
		}
		var bands []Band
		path, err := a.obtain(ctx, rec, FileName(rec.Name, rec.RA, rec.Dec, format, ""), "grz", format, func(data []byte) (err error) {
			bands, err = decodeCube(data)
			return err
		})
		if err != nil {
			return nil, "", err
		}
		return &MultiBandImage{Galaxy: rec.Name, Bands: bands}, path, nil

	case FormatJPEG:
		if !perBand {
			var bands []Band
			path, err := a.obtain(ctx, rec, FileName(rec.Name, rec.RA, rec.Dec, format, ""), "grz", format, func(data []byte) (err error) {
				bands, err = decodeComposite(data)
				return err
			})
			if err != nil {
				return nil, "", err
			}
			return &MultiBandImage{Galaxy: rec.Name, Bands: bands}, path, nil
		}

		img := &MultiBandImage{Galaxy: rec.Name}
		var firstPath string
		for _, band := range SurveyBands {
			var plane Plane
			path, err := a.obtain(ctx, rec, FileName(rec.Name, rec.RA, rec.Dec, format, band), band, format, func(data []byte) (err error) {
				plane, err = decodeGray(data)
				return err
			})
			if err != nil {
				return nil, "", fmt.Errorf("band %s: %w", band, err)
			}
			if firstPath == "" {
				firstPath = path
			}
			img.Bands = append(img.Bands, Band{Name: band, Plane: plane})
		}
		return img, firstPath, nil

	default:
		return nil, "", fmt.Errorf("unsupported image format: %s", format)
	}
}

// obtain loads file from the store or fetches it. Fetched data is decoded
// before it is saved so a malformed response never poisons the cache.
func (a *Acquirer) obtain(ctx context.Context, rec catalog.Record, file, bands string, format Format, decode func([]byte) error) (string, error) {
	if a.Store != nil && a.Store.Has(file) {
		slog.Debug("Loading cached image", "galaxy", rec.Name, "file", file)
		data, err := a.Store.Load(file)
		if err != nil {
			return "", err
		}
		if err := decode(data); err != nil {
			return "", fmt.Errorf("cached file %s: %w", file, err)
		}
		return a.Store.Path(file), nil
	}

	slog.Info("Downloading image", "galaxy", rec.Name, "format", format, "ra", rec.RA, "dec", rec.Dec, "bands", bands)
	data, err := a.Source.Fetch(ctx, CutoutRequest{RA: rec.RA, Dec: rec.Dec, Format: format, Bands: bands})
	if err != nil {
		return "", err
	}
	if err := decode(data); err != nil {
		return "", err
	}

	if a.Store == nil {
		return "", nil
	}
	return a.Store.Save(file, data)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
