package processing

import (
	"math"
	"slices"

	"github.com/ludanortmun/bargal/internal/images"
)

// Epsilon is the floor applied before taking logarithms.
const Epsilon = 1e-6

// logStretchA is the stretch strength, matching astropy's LogStretch default
const logStretchA = 1000.0

// Transform maps a plane to a new plane of the same shape. Transforms never
// modify their input.
type Transform func(images.Plane) images.Plane

// Chain applies transforms left to right.
func Chain(ts ...Transform) Transform {
	return func(p images.Plane) images.Plane {
		for _, t := range ts {
			p = t(p)
		}
		return p
	}
}

func mapPixels(p images.Plane, fn func(float64) float64) images.Plane {
	out := images.NewPlane(p.Width, p.Height)
	for i, v := range p.Pix {
		out.Pix[i] = fn(v)
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// LogStretch computes log(a*x+1)/log(a+1) after clipping x into [Epsilon, 1].
func LogStretch() Transform {
	norm := math.Log(logStretchA + 1)
	return func(p images.Plane) images.Plane {
		return mapPixels(p, func(v float64) float64 {
			if math.IsNaN(v) {
				v = Epsilon
			}
			return math.Log(logStretchA*clip(v, Epsilon, 1)+1) / norm
		})
	}
}

// SqrtLogStretch is the square root of LogStretch.
func SqrtLogStretch() Transform {
	stretch := LogStretch()
	return func(p images.Plane) images.Plane {
		return mapPixels(stretch(p), math.Sqrt)
	}
}

// SqrtStretch computes sqrt(x) after clipping x into [0, 1].
func SqrtStretch() Transform {
	return func(p images.Plane) images.Plane {
		return mapPixels(p, func(v float64) float64 {
			if math.IsNaN(v) {
				return 0
			}
			return math.Sqrt(clip(v, 0, 1))
		})
	}
}

// PercentileNormalize maps the [lo, hi] percentile range onto [0, 1] and
// clips the rest. A flat plane maps to all zeros.
func PercentileNormalize(lo, hi float64) Transform {
	return func(p images.Plane) images.Plane {
		if len(p.Pix) == 0 {
			return p.Clone()
		}
		sorted := slices.Clone(p.Pix)
		slices.Sort(sorted)
		vmin := percentile(sorted, lo)
		vmax := percentile(sorted, hi)
		return rescale(p, vmin, vmax)
	}
}

// MinMaxNormalize maps the plane's range onto [0, 1].
func MinMaxNormalize() Transform {
	return func(p images.Plane) images.Plane {
		if len(p.Pix) == 0 {
			return p.Clone()
		}
		return rescale(p, slices.Min(p.Pix), slices.Max(p.Pix))
	}
}

func rescale(p images.Plane, vmin, vmax float64) images.Plane {
	span := vmax - vmin
	return mapPixels(p, func(v float64) float64 {
		if span <= 0 || math.IsNaN(v) {
			return 0
		}
		return clip((v-vmin)/span, 0, 1)
	})
}

// percentile uses linear interpolation between closest ranks
func percentile(sorted []float64, q float64) float64 {
	pos := clip(q, 0, 100) / 100 * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// BilateralFilter smooths noise while keeping edges: each pixel becomes the
// average of its neighbourhood weighted by spatial distance and value
// difference.
func BilateralFilter(radius int, sigmaSpace, sigmaRange float64) Transform {
	size := 2*radius + 1
	spatial := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*size+dx+radius] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}
	rangeDenom := 2 * sigmaRange * sigmaRange

	return func(p images.Plane) images.Plane {
		out := images.NewPlane(p.Width, p.Height)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				center := p.At(x, y)
				var sum, weights float64
				for dy := -radius; dy <= radius; dy++ {
					yy := y + dy
					if yy < 0 || yy >= p.Height {
						continue
					}
					for dx := -radius; dx <= radius; dx++ {
						xx := x + dx
						if xx < 0 || xx >= p.Width {
							continue
						}
						v := p.At(xx, yy)
						diff := v - center
						w := spatial[(dy+radius)*size+dx+radius] * math.Exp(-diff*diff/rangeDenom)
						sum += w * v
						weights += w
					}
				}
				out.Set(x, y, sum/weights)
			}
		}
		return out
	}
}

// CenterZoom crops the central 1/factor of the plane and scales it back to
// the original size with bilinear interpolation.
func CenterZoom(factor float64) Transform {
	return func(p images.Plane) images.Plane {
		if factor <= 1 || p.Width == 0 || p.Height == 0 {
			return p.Clone()
		}
		out := images.NewPlane(p.Width, p.Height)
		cropW := float64(p.Width) / factor
		cropH := float64(p.Height) / factor
		x0 := (float64(p.Width) - cropW) / 2
		y0 := (float64(p.Height) - cropH) / 2

		for y := 0; y < p.Height; y++ {
			sy := y0 + (float64(y)+0.5)/factor - 0.5
			for x := 0; x < p.Width; x++ {
				sx := x0 + (float64(x)+0.5)/factor - 0.5
				out.Set(x, y, bilinear(p, sx, sy))
			}
		}
		return out
	}
}

func bilinear(p images.Plane, sx, sy float64) float64 {
	sx = clip(sx, 0, float64(p.Width-1))
	sy = clip(sy, 0, float64(p.Height-1))
	x0, y0 := int(sx), int(sy)
	x1, y1 := min(x0+1, p.Width-1), min(y0+1, p.Height-1)
	fx, fy := sx-float64(x0), sy-float64(y0)

	top := p.At(x0, y0)*(1-fx) + p.At(x1, y0)*fx
	bottom := p.At(x0, y1)*(1-fx) + p.At(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}
