package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the survey has no cutout for the coordinates.
var ErrNotFound = errors.New("cutout not found")

// Source fetches raw cutout bytes. Fetcher is the production implementation.
type Source interface {
	Fetch(ctx context.Context, req CutoutRequest) ([]byte, error)
}

// CutoutRequest describes a single cutout download
type CutoutRequest struct {
	RA     float64
	Dec    float64
	Format Format
	Bands  string // e.g. "grz" or "g"
}

// FetcherConfig holds the Legacy Survey viewer parameters
type FetcherConfig struct {
	BaseURL           string
	Layer             string
	Size              int
	PixScale          float64
	RequestsPerSecond float64 // <= 0 disables pacing
	Timeout           time.Duration
}

// DefaultFetcherConfig returns the parameters the models were trained with
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		BaseURL:           "https://www.legacysurvey.org/viewer",
		Layer:             "ls-dr10",
		Size:              800,
		PixScale:          0.262,
		RequestsPerSecond: 5,
		Timeout:           30 * time.Second,
	}
}

// FetcherConfigFromEnv applies BARGAL_* environment overrides to the defaults
func FetcherConfigFromEnv() FetcherConfig {
	cfg := DefaultFetcherConfig()

	if v := os.Getenv("BARGAL_SURVEY_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("BARGAL_SURVEY_LAYER"); v != "" {
		cfg.Layer = v
	}
	if v, err := strconv.Atoi(os.Getenv("BARGAL_CUTOUT_SIZE")); err == nil && v > 0 {
		cfg.Size = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("BARGAL_PIXSCALE"), 64); err == nil && v > 0 {
		cfg.PixScale = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("BARGAL_REQUESTS_PER_SECOND"), 64); err == nil {
		cfg.RequestsPerSecond = v
	}
	if v, err := time.ParseDuration(os.Getenv("BARGAL_HTTP_TIMEOUT")); err == nil && v > 0 {
		cfg.Timeout = v
	}

	return cfg
}

// Fetcher retrieves galaxy cutouts from the Legacy Survey viewer
type Fetcher struct {
	HTTPClient *http.Client
	Config     FetcherConfig

	limiter *rate.Limiter
}

// NewFetcher creates a new cutout fetcher. The request pacing is shared by
// every goroutine using the fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// URL builds the cutout URL for req
func (f *Fetcher) URL(req CutoutRequest) string {
	bands := req.Bands
	if bands == "" {
		bands = "grz"
	}

	q := url.Values{}
	q.Set("ra", strconv.FormatFloat(req.RA, 'f', -1, 64))
	q.Set("dec", strconv.FormatFloat(req.Dec, 'f', -1, 64))
	q.Set("size", strconv.Itoa(f.Config.Size))
	q.Set("layer", f.Config.Layer)
	q.Set("pixscale", strconv.FormatFloat(f.Config.PixScale, 'f', -1, 64))
	q.Set("bands", bands)

	return fmt.Sprintf("%s/%s-cutout?%s", f.Config.BaseURL, req.Format, q.Encode())
}

// Fetch downloads a cutout. Failures are never retried.
func (f *Fetcher) Fetch(ctx context.Context, req CutoutRequest) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	cutoutURL := f.URL(req)
	slog.Debug("Downloading cutout", "format", req.Format, "ra", req.RA, "dec", req.Dec, "bands", req.Bands)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cutoutURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cutout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w at ra=%v dec=%v", ErrNotFound, req.RA, req.Dec)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cutout service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cutout data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("cutout service returned an empty body")
	}

	return data, nil
}
