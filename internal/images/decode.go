package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/astrogo/fitsio"
)

// decodeComposite splits a g/r/z composite. The survey renders z as red,
// r as green and g as blue.
func decodeComposite(data []byte) ([]Band, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode composite image: %w", err)
	}

	b := img.Bounds()
	g := NewPlane(b.Dx(), b.Dy())
	r := NewPlane(b.Dx(), b.Dy())
	z := NewPlane(b.Dx(), b.Dy())

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			z.Set(x, y, float64(c.R)/255)
			r.Set(x, y, float64(c.G)/255)
			g.Set(x, y, float64(c.B)/255)
		}
	}

	return []Band{{Name: "g", Plane: g}, {Name: "r", Plane: r}, {Name: "z", Plane: z}}, nil
}

// decodeGray converts a single-band raster to luminance in [0,1]
func decodeGray(data []byte) (Plane, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Plane{}, fmt.Errorf("failed to decode band image: %w", err)
	}

	b := img.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			p.Set(x, y, float64(c.Y)/255)
		}
	}
	return p, nil
}

// decodeCube reads a FITS cube whose third axis holds the g, r and z planes.
// FITS stores the bottom row first; planes are flipped to top-down order.
// Masked (non-finite) pixels become 0.
func decodeCube(data []byte) ([]Band, error) {
	f, err := fitsio.Open(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS cube: %w", err)
	}
	defer f.Close()

	if len(f.HDUs()) == 0 {
		return nil, fmt.Errorf("FITS cube has no HDU")
	}
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("FITS primary HDU is not an image")
	}

	axes := img.Header().Axes()
	if len(axes) < 3 || axes[2] < len(SurveyBands) {
		return nil, fmt.Errorf("FITS cube has axes %v, need %d band planes", axes, len(SurveyBands))
	}
	width, height := axes[0], axes[1]

	n := 1
	for _, a := range axes {
		n *= a
	}
	raw, err := readPixels(img, n)
	if err != nil {
		return nil, err
	}
	planeSize := width * height
	if len(raw) < planeSize*len(SurveyBands) {
		return nil, fmt.Errorf("FITS cube truncated: %d values for %dx%dx%d", len(raw), width, height, len(SurveyBands))
	}

	bands := make([]Band, 0, len(SurveyBands))
	for i, name := range SurveyBands {
		p := NewPlane(width, height)
		src := raw[i*planeSize : (i+1)*planeSize]
		for y := 0; y < height; y++ {
			row := src[(height-1-y)*width : (height-y)*width]
			for x, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = 0
				}
				p.Set(x, y, v)
			}
		}
		bands = append(bands, Band{Name: name, Plane: p})
	}

	return bands, nil
}

// readPixels reads n values into a slice matching BITPIX, since fitsio does
// not convert element sizes, then widens them to float64.
func readPixels(img fitsio.Image, n int) ([]float64, error) {
	bitpix := img.Header().Bitpix()
	out := make([]float64, n)

	var err error
	switch bitpix {
	case 8:
		buf := make([]uint8, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case 16:
		buf := make([]int16, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case 32:
		buf := make([]int32, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case -32:
		buf := make([]float32, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case -64:
		err = img.Read(&out)
	default:
		return nil, fmt.Errorf("unsupported FITS BITPIX %d", bitpix)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read FITS data: %w", err)
	}
	return out, nil
}
