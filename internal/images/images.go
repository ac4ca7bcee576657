package images

import (
	"fmt"
	"strings"
)

// Format is the cutout file format requested from the survey.
type Format string

const (
	// FormatJPEG is the rasterized g/r/z composite (or a single band in per-band mode)
	FormatJPEG Format = "jpeg"
	// FormatFITS is the raw multi-band cube
	FormatFITS Format = "fits"
)

// SurveyBands are the photometric bands fetched for every galaxy, in cube order.
var SurveyBands = []string{"g", "r", "z"}

// ParseFormat accepts jpeg, jpg and fits (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "fits":
		return FormatFITS, nil
	default:
		return "", fmt.Errorf("unsupported image format: %s (supported: jpeg, fits)", s)
	}
}

// Ext returns the file extension used when caching this format.
func (f Format) Ext() string {
	if f == FormatFITS {
		return ".fits"
	}
	return ".jpg"
}

// Plane is a 2-D array of pixel values stored row-major, row 0 at the top.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) Plane {
	return Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the value at column x, row y.
func (p Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at column x, row y.
func (p Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

// Clone returns a deep copy.
func (p Plane) Clone() Plane {
	out := Plane{Width: p.Width, Height: p.Height, Pix: make([]float64, len(p.Pix))}
	copy(out.Pix, p.Pix)
	return out
}

// SameShape reports whether both planes have identical dimensions.
func (p Plane) SameShape(o Plane) bool {
	return p.Width == o.Width && p.Height == o.Height
}

// Band is one photometric filter's plane.
type Band struct {
	Name string
	Plane
}

// MultiBandImage holds the co-registered bands of one galaxy cutout.
type MultiBandImage struct {
	Galaxy string
	Bands  []Band
}

// Band returns the plane for the named band.
func (m *MultiBandImage) Band(name string) (Plane, bool) {
	for _, b := range m.Bands {
		if b.Name == name {
			return b.Plane, true
		}
	}
	return Plane{}, false
}
