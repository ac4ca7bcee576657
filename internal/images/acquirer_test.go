package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludanortmun/bargal/internal/catalog"
)

func compositePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: 51, B: uint8(x * 50), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fitsCube(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	require.NoError(t, err)

	img := fitsio.NewImage(-32, []int{width, height, 3})
	defer img.Close()

	data := make([]float32, width*height*3)
	for b := 0; b < 3; b++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[b*width*height+y*width+x] = float32(b*100 + y*10 + x)
			}
		}
	}
	require.NoError(t, img.Write(&data))
	require.NoError(t, f.Write(img))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*countingServer, *Fetcher) {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(cs.Close)

	cfg := DefaultFetcherConfig()
	cfg.BaseURL = cs.URL
	cfg.RequestsPerSecond = 0
	return cs, NewFetcher(cfg)
}

func galaxy(name string) catalog.Record {
	return catalog.Record{Name: name, RA: 10.5, Dec: -2.25}
}

func TestFetcherURL(t *testing.T) {
	f := NewFetcher(DefaultFetcherConfig())
	u := f.URL(CutoutRequest{RA: 10.5, Dec: -2.25, Format: FormatFITS, Bands: "grz"})
	assert.Equal(t, "https://www.legacysurvey.org/viewer/fits-cutout?bands=grz&dec=-2.25&layer=ls-dr10&pixscale=0.262&ra=10.5&size=800", u)
}

func TestAcquireCompositeCachesAndHits(t *testing.T) {
	payload := compositePNG(t)
	srv, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jpeg-cutout", r.URL.Path)
		w.Write(payload)
	})

	store, err := NewStore(filepath.Join(t.TempDir(), "imgs"))
	require.NoError(t, err)
	a := NewAcquirer(fetcher, store)

	img, path, err := a.Acquire(context.Background(), galaxy("B"), FormatJPEG, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir, "B.jpg"), path)
	assert.Equal(t, int32(1), srv.hits.Load())

	g, ok := img.Band("g")
	require.True(t, ok)
	r, _ := img.Band("r")
	z, _ := img.Band("z")
	assert.Equal(t, 4, g.Width)
	assert.Equal(t, 3, g.Height)
	assert.InDelta(t, 100.0/255, g.At(2, 1), 1e-12)
	assert.InDelta(t, 0.2, r.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, z.At(3, 2), 1e-12)

	again, path2, err := a.Acquire(context.Background(), galaxy("B"), FormatJPEG, false)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Equal(t, int32(1), srv.hits.Load(), "cache hit must not fetch")
	assert.Equal(t, img, again)
}

func TestAcquirePerBand(t *testing.T) {
	payload := compositePNG(t)
	var (
		mu    sync.Mutex
		bands []string
	)
	_, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		bands = append(bands, r.URL.Query().Get("bands"))
		mu.Unlock()
		w.Write(payload)
	})

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	img, path, err := NewAcquirer(fetcher, store).Acquire(context.Background(), galaxy("NGC 1300"), FormatJPEG, true)
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []string{"g", "r", "z"}, bands)
	mu.Unlock()
	assert.Equal(t, filepath.Join(store.Dir, "NGC 1300.g.jpg"), path)
	assert.Len(t, img.Bands, 3)
	for _, b := range SurveyBands {
		assert.True(t, store.Has("NGC 1300."+b+".jpg"))
	}
}

func TestAcquireFITSIgnoresPerBand(t *testing.T) {
	payload := fitsCube(t, 3, 2)
	srv, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fits-cutout", r.URL.Path)
		assert.Equal(t, "grz", r.URL.Query().Get("bands"))
		w.Write(payload)
	})

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	img, path, err := NewAcquirer(fetcher, store).Acquire(context.Background(), galaxy("C"), FormatFITS, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, filepath.Join(store.Dir, "C.fits"), path)

	r, ok := img.Band("r")
	require.True(t, ok)
	assert.Equal(t, 3, r.Width)
	assert.Equal(t, 2, r.Height)
	// FITS row 1 (top) becomes row 0
	assert.Equal(t, 110.0, r.At(0, 0))
	assert.Equal(t, 102.0, r.At(2, 1))
}

func TestAcquireWithoutStore(t *testing.T) {
	payload := compositePNG(t)
	srv, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) { w.Write(payload) })

	a := NewAcquirer(fetcher, nil)
	_, path, err := a.Acquire(context.Background(), galaxy("A"), FormatJPEG, false)
	require.NoError(t, err)
	assert.Empty(t, path)

	_, _, err = a.Acquire(context.Background(), galaxy("A"), FormatJPEG, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestAcquireNotFound(t *testing.T) {
	_, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = NewAcquirer(fetcher, store).Acquire(context.Background(), galaxy("A"), FormatFITS, false)
	require.Error(t, err)

	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))
	assert.Equal(t, "A", acqErr.Galaxy)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, store.Has("A.fits"))
}

func TestAcquireMalformedResponseIsNotCached(t *testing.T) {
	_, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>service unavailable</html>"))
	})
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = NewAcquirer(fetcher, store).Acquire(context.Background(), galaxy("A"), FormatJPEG, false)
	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))

	entries, err := os.ReadDir(store.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAcquireInvalidCoordinates(t *testing.T) {
	srv, fetcher := newServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := catalog.Record{Name: "X", RA: math.NaN(), Dec: 1}
	_, _, err := NewAcquirer(fetcher, nil).Acquire(context.Background(), rec, FormatJPEG, false)

	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "M31.fits", FileName(" M31 ", 0, 0, FormatFITS, ""))
	assert.Equal(t, "a_b.r.jpg", FileName("a/b", 0, 0, FormatJPEG, "r"))
	assert.Equal(t, "cutout_ra1.5_dec-2.jpg", FileName("", 1.5, -2, FormatJPEG, ""))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JPG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, f)

	_, err = ParseFormat("png")
	assert.Error(t, err)
}
