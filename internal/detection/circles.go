package detection

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/imaging"
	"github.com/ironsheep/count-circles/internal/metrics"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Circle represents a detected circular shape with metadata.
type Circle struct {
	// Center is the detected center point of the circle.
	Center Point `json:"center"`

	// Radius is the detected radius in pixels.
	Radius int `json:"radius"`

	// Diameter is 2 × Radius for convenience.
	Diameter int `json:"diameter"`

	// Votes is the accumulator count at the circle's cell.
	Votes int `json:"votes"`

	// FillColor is the hex color sampled at the center of the circle.
	FillColor string `json:"fill_color,omitempty"`

	// Confidence is Votes divided by the number of angle samples per edge
	// pixel, capped at 1.0. A perfect one-pixel digital circle scores 1.0.
	Confidence float64 `json:"confidence"`
}

// CirclesResult contains all circles detected in an image.
type CirclesResult struct {
	// Circles is the list of kept circles in accumulator scan order.
	Circles []Circle `json:"circles"`

	// Count is the number of circles detected.
	Count int `json:"count"`

	// Candidates is the number of accumulator peaks before spacing.
	Candidates int `json:"candidates"`

	// EdgePixels is the number of edge pixels that voted.
	EdgePixels int `json:"edge_pixels"`

	// Timings holds the phase durations of the transform.
	Timings metrics.Timings `json:"timings"`

	// Annotated is the input with the circles drawn, when requested.
	Annotated *image.NRGBA `json:"-"`
}

// Options configures DetectCircles.
type Options struct {
	Params hough.Params `json:"params"`

	Blur      imaging.BlurMethod  `json:"blur"`
	BlurKSize int                 `json:"blur_ksize"`
	Edges     imaging.EdgeOptions `json:"edges"`

	// Annotate requests CirclesResult.Annotated, outlined in Color.
	Annotate bool   `json:"annotate"`
	Color    string `json:"color"`
}

// DefaultOptions returns median blur of size 5, Canny 100/200 with a 3×3
// aperture, radii 15 to 30, a peak threshold of 125, 32-pixel bins and
// 40-pixel spacing.
func DefaultOptions() Options {
	return Options{
		Params: hough.Params{
			MinRadius:     15,
			MaxRadius:     30,
			PeakThreshold: 125,
			Binning:       true,
			BinSize:       32,
			Spacing:       true,
			SpacingSize:   40,
		},
		Blur:      imaging.BlurMedian,
		BlurKSize: 5,
		Edges:     imaging.DefaultEdgeOptions(),
		Color:     imaging.DefaultCircleColor,
	}
}

// Edges runs the preprocessing chain on img: grayscale, blur, edge detection.
func Edges(img image.Image, opts Options) *hough.EdgeMap {
	gray := imaging.Grayscale(img)
	gray = imaging.Blur(gray, opts.Blur, opts.BlurKSize)
	return imaging.EdgeDetect(gray, opts.Edges)
}

// DetectCircles finds and counts circles in img with the Hough circle transform.
//
// The image is turned into an edge map (see Edges), exec builds the vote
// accumulator, and peaks are extracted, binned and spaced as configured in
// opts.Params. run carries the metrics recorder and logger of the transform.
//
// # Algorithm (Hough Circle Transform)
//
//  1. Edge Detection: grayscale, blur and Canny or Sobel
//  2. Accumulator Voting: every edge pixel votes, for every radius, at 361
//     angle samples for the centers it could belong to
//  3. Peak Detection: cells reaching the peak threshold, optionally only the
//     strongest cell per bin
//  4. Spacing: candidates too close to an already kept circle are dropped
//  5. Color Sampling: fill color sampled at each kept center
func DetectCircles(ctx context.Context, img image.Image, exec hough.Executor, opts Options, run hough.Options) (*CirclesResult, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", hough.ErrGeometry)
	}

	edges := Edges(img, opts)
	res, err := hough.Run(ctx, exec, edges, opts.Params, run)
	if err != nil {
		return nil, err
	}

	circles := make([]Circle, len(res.Circles))
	for i, c := range res.Circles {
		x, y := c.X+bounds.Min.X, c.Y+bounds.Min.Y
		circles[i] = Circle{
			Center:     Point{X: x, Y: y},
			Radius:     c.R,
			Diameter:   2 * c.R,
			Votes:      int(c.Votes),
			FillColor:  sampleColorHex(img, x, y),
			Confidence: math.Min(float64(c.Votes)/hough.AngleSamples, 1.0),
		}
	}

	out := &CirclesResult{
		Circles:    circles,
		Count:      res.Count,
		Candidates: len(res.Candidates),
		EdgePixels: edges.EdgeCount(),
		Timings:    res.Timings,
	}
	if opts.Annotate {
		out.Annotated = imaging.Annotate(img, res.Circles, opts.Color)
	}
	return out, nil
}

// sampleColorHex returns the hex color (#RRGGBB) of a pixel.
// No bounds checking is performed; caller must ensure coordinates are valid.
func sampleColorHex(img image.Image, x, y int) string {
	r, g, b, _ := img.At(x, y).RGBA()
	return fmt.Sprintf("#%02X%02X%02X", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
