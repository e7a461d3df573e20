package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// BlurMethod selects the noise filter applied before edge detection.
type BlurMethod int

const (
	// BlurMedian replaces each pixel with the median of its neighborhood.
	BlurMedian BlurMethod = iota

	// BlurGaussian convolves with a Gaussian kernel.
	BlurGaussian
)

func (m BlurMethod) String() string {
	switch m {
	case BlurMedian:
		return "median"
	case BlurGaussian:
		return "gaussian"
	}
	return fmt.Sprintf("BlurMethod(%d)", int(m))
}

// ParseBlurMethod parses "median" or "gaussian".
func ParseBlurMethod(s string) (BlurMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "median", "":
		return BlurMedian, nil
	case "gaussian", "gauss":
		return BlurGaussian, nil
	}
	return 0, fmt.Errorf("unknown blur method: %s", s)
}

// Kernel size limits.
const (
	MinBlurKSize = 1
	MaxBlurKSize = 21
	MinEdgeKSize = 3
	MaxEdgeKSize = 7
)

// OddKernel clamps k to [lo, hi] and bumps even sizes up to the next odd one.
// lo and hi must be odd.
func OddKernel(k, lo, hi int) int {
	k = max(lo, min(hi, k))
	if k%2 == 0 {
		k++
	}
	return k
}

// Grayscale converts img to 8-bit luminance.
func Grayscale(img image.Image) *image.Gray {
	return effect.Grayscale(img)
}

// Blur filters gray with a square kernel of ksize pixels. ksize is clamped to
// an odd size in [MinBlurKSize, MaxBlurKSize]; a size of 1 returns a copy.
func Blur(gray *image.Gray, method BlurMethod, ksize int) *image.Gray {
	ksize = OddKernel(ksize, MinBlurKSize, MaxBlurKSize)
	if ksize == 1 {
		out := image.NewGray(gray.Bounds())
		draw.Draw(out, out.Bounds(), gray, gray.Bounds().Min, draw.Src)
		return out
	}

	radius := float64(ksize / 2)
	switch method {
	case BlurGaussian:
		return effect.Grayscale(blur.Gaussian(gray, radius))
	default:
		return effect.Grayscale(effect.Median(gray, radius))
	}
}
