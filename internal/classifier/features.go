package classifier

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ludanortmun/bargal/internal/images"
)

// Feature names understood by ExtractFeatures.
const (
	FeatureContrast    = "contrast"
	FeatureEdgeCount   = "edge_count"
	FeatureHistStd     = "hist_std"
	FeatureCircularity = "circularity"
)

var knownFeatures = map[string]bool{
	FeatureContrast:    true,
	FeatureEdgeCount:   true,
	FeatureHistStd:     true,
	FeatureCircularity: true,
}

const (
	edgeThreshold   = 100.0
	regionThreshold = 127
)

// ToGray quantizes a plane in [0,1] to 8 bits; out-of-range values are clipped.
func ToGray(p images.Plane) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := p.At(x, y)
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.Pix[y*img.Stride+x] = uint8(v * 255)
		}
	}
	return img
}

// Resize scales img to size x size with bilinear interpolation.
func Resize(img *image.Gray, size int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ExtractFeatures quantizes and resizes the plane, then measures it. The
// returned map holds every known feature.
func ExtractFeatures(p images.Plane, size int) map[string]float64 {
	img := Resize(ToGray(p), size)

	var hist [256]float64
	for _, v := range img.Pix {
		hist[v]++
	}
	mean := float64(len(img.Pix)) / 256
	var variance float64
	for _, h := range hist {
		variance += (h - mean) * (h - mean)
	}
	variance /= 256

	return map[string]float64{
		FeatureContrast:    variance,
		FeatureHistStd:     math.Sqrt(variance),
		FeatureEdgeCount:   float64(edgeCount(img)),
		FeatureCircularity: circularity(img),
	}
}

// edgeCount counts interior pixels whose Sobel gradient magnitude reaches edgeThreshold
func edgeCount(img *image.Gray) int {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	at := func(x, y int) float64 { return float64(img.Pix[y*img.Stride+x]) }

	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if math.Hypot(gx, gy) >= edgeThreshold {
				count++
			}
		}
	}
	return count
}

// circularity returns 4*pi*A/P^2 for the largest 4-connected region above
// regionThreshold, with P counted as pixel edges bordering background.
func circularity(img *image.Gray) float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && img.Pix[y*img.Stride+x] > regionThreshold
	}

	seen := make([]bool, w*h)
	var bestArea, bestPerimeter int
	stack := make([]int, 0, 64)
	neighbours := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

	for start := 0; start < w*h; start++ {
		if seen[start] || !fg(start%w, start/w) {
			continue
		}
		area, perimeter := 0, 0
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			area++
			for _, d := range neighbours {
				nx, ny := x+d[0], y+d[1]
				if !fg(nx, ny) {
					perimeter++
					continue
				}
				if j := ny*w + nx; !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		if area > bestArea {
			bestArea, bestPerimeter = area, perimeter
		}
	}

	if bestPerimeter == 0 {
		return 0
	}
	return 4 * math.Pi * float64(bestArea) / float64(bestPerimeter*bestPerimeter)
}
