package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/count-circles/internal/hough"
)

// EdgeMethod selects the edge detector.
type EdgeMethod int

const (
	// EdgeCanny thins gradients to one-pixel ridges and links them by hysteresis.
	EdgeCanny EdgeMethod = iota

	// EdgeSobel thresholds the Sobel gradient magnitude.
	EdgeSobel
)

func (m EdgeMethod) String() string {
	switch m {
	case EdgeCanny:
		return "canny"
	case EdgeSobel:
		return "sobel"
	}
	return fmt.Sprintf("EdgeMethod(%d)", int(m))
}

// ParseEdgeMethod parses "canny" or "sobel".
func ParseEdgeMethod(s string) (EdgeMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "canny", "":
		return EdgeCanny, nil
	case "sobel":
		return EdgeSobel, nil
	}
	return 0, fmt.Errorf("unknown edge method: %s", s)
}

// EdgeOptions configures EdgeDetect.
type EdgeOptions struct {
	Method EdgeMethod `json:"method"`

	// KSize is the Canny gradient aperture, clamped to an odd size in
	// [MinEdgeKSize, MaxEdgeKSize]. The Sobel detector always uses 3×3.
	KSize int `json:"ksize"`

	// Low and High are the Canny hysteresis thresholds on the L1 gradient
	// magnitude of 8-bit intensities (0-500 is a useful range). They may be
	// given in either order.
	Low  int `json:"low_threshold"`
	High int `json:"high_threshold"`

	// SobelThreshold is the gradient magnitude (0-255) at or above which a
	// Sobel pixel is an edge.
	SobelThreshold int `json:"sobel_threshold"`
}

// DefaultEdgeOptions returns Canny with a 3×3 aperture and thresholds 100/200.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{
		Method:         EdgeCanny,
		KSize:          3,
		Low:            100,
		High:           200,
		SobelThreshold: 128,
	}
}

// EdgeDetect turns a grayscale image into a binary edge map.
//
// # Canny
//
//  1. Gradient computation: Sobel derivatives of size KSize in X and Y,
//     magnitude = |Gx| + |Gy|, direction = atan2(Gy, Gx)
//
//  2. Non-maximum suppression: keep only pixels that are local maxima along
//     their gradient direction, thinning edges to one pixel
//
//  3. Hysteresis: pixels at or above High are edges, and pixels at or above
//     Low are edges when 8-connected to one. Everything else is discarded.
//
// The image border never holds Canny edges. No smoothing is applied; call Blur
// first.
//
// # Sobel
//
// The 3×3 Sobel magnitude is thresholded at SobelThreshold.
func EdgeDetect(gray *image.Gray, opts EdgeOptions) *hough.EdgeMap {
	switch opts.Method {
	case EdgeSobel:
		level := uint8(max(0, min(255, opts.SobelThreshold)))
		return EdgeMapFromGray(segment.Threshold(effect.Sobel(gray), level))
	default:
		return canny(gray, opts)
	}
}

func canny(gray *image.Gray, opts EdgeOptions) *hough.EdgeMap {
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	edges := hough.NewEdgeMap(width, height)
	if width < 3 || height < 3 {
		return edges
	}

	k := OddKernel(opts.KSize, MinEdgeKSize, MaxEdgeKSize)
	smooth, deriv := sobelKernels(k)
	half := k / 2

	low, high := float64(opts.Low), float64(opts.High)
	if low > high {
		low, high = high, low
	}

	// Compute gradients
	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -half; ky <= half; ky++ {
				py := clamp(y+ky, 0, height-1)
				row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+py):]
				for kx := -half; kx <= half; kx++ {
					v := float64(row[clamp(x+kx, 0, width-1)])
					gx += v * smooth[ky+half] * deriv[kx+half]
					gy += v * deriv[ky+half] * smooth[kx+half]
				}
			}
			i := y*width + x
			magnitude[i] = math.Abs(gx) + math.Abs(gy)
			direction[i] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := direction[i]
			mag := magnitude[i]
			if mag == 0 {
				continue
			}

			// Neighbors along the gradient; y grows downward.
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Edge tracking by hysteresis
	var stack []int
	for i, v := range suppressed {
		if v == 0 || v < high || edges.Pix[i] == hough.Edge {
			continue
		}
		edges.Pix[i] = hough.Edge
		stack = append(stack, i)

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%width, p/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := px+dx, py+dy
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					n := ny*width + nx
					if edges.Pix[n] == hough.Edge || suppressed[n] == 0 || suppressed[n] < low {
						continue
					}
					edges.Pix[n] = hough.Edge
					stack = append(stack, n)
				}
			}
		}
	}

	return edges
}

// sobelKernels returns the separable smoothing and first-derivative vectors of
// a k×k Sobel operator: binomial coefficients, and lower-order binomial
// coefficients convolved with [-1 0 1].
func sobelKernels(k int) (smooth, deriv []float64) {
	smooth = binomial(k - 1)
	deriv = make([]float64, k)
	for i, c := range binomial(k - 3) {
		deriv[i] -= c
		deriv[i+2] += c
	}
	return smooth, deriv
}

func binomial(n int) []float64 {
	row := []float64{1}
	for range n {
		next := make([]float64, len(row)+1)
		for i, v := range row {
			next[i] += v
			next[i+1] += v
		}
		row = next
	}
	return row
}

// clamp constrains an integer value to the range [lo, hi].
// Used for border replication in convolutions.
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// EdgeMapFromGray marks every non-black pixel of g as an edge.
func EdgeMapFromGray(g *image.Gray) *hough.EdgeMap {
	bounds := g.Bounds()
	m := hough.NewEdgeMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		row := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):][:m.Width]
		for x, v := range row {
			if v != 0 {
				m.Pix[y*m.Width+x] = hough.Edge
			}
		}
	}
	return m
}

// EdgeImage renders m as a grayscale image, edges white on black.
func EdgeImage(m *hough.EdgeMap) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(g.Pix, m.Pix)
	return g
}

// EdgeDetectResult contains an edge map encoded as base64 PNG.
//
// The image is grayscale where white pixels (255) are edges and black pixels (0)
// are not.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of edge pixels, each of which casts votes.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EncodeEdges renders m and encodes it as base64 PNG.
func EncodeEdges(m *hough.EdgeMap) (*EdgeDetectResult, error) {
	encoded, err := EncodePNGBase64(EdgeImage(m))
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}
	return &EdgeDetectResult{
		Width:       m.Width,
		Height:      m.Height,
		EdgePixels:  m.EdgeCount(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Save writes img to path in the format implied by its extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
