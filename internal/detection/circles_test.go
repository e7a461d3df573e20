package detection

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/count-circles/internal/cluster"
	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/metrics"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createDiscImage draws filled discs of color fill on a white background.
func createDiscImage(width, height int, fill color.Color, discs ...[3]int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for _, d := range discs {
		cx, cy, r := d[0], d[1], d[2]
		for y := cy - r; y <= cy+r; y++ {
			for x := cx - r; x <= cx+r; x++ {
				if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
					img.Set(x, y, fill)
				}
			}
		}
	}
	return img
}

func discOptions() Options {
	opts := DefaultOptions()
	opts.Params.MinRadius = 15
	opts.Params.MaxRadius = 25
	opts.Params.PeakThreshold = 100
	return opts
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestDetectCircles(t *testing.T) {
	img := createDiscImage(100, 100, color.RGBA{0, 0, 200, 255}, [3]int{48, 48, 20})

	result, err := DetectCircles(context.Background(), img, hough.Sequential{}, discOptions(), hough.Options{})
	if err != nil {
		t.Fatalf("DetectCircles failed: %v", err)
	}
	if result.Count != 1 || len(result.Circles) != 1 {
		t.Fatalf("expected 1 circle, got %d: %+v", result.Count, result.Circles)
	}

	c := result.Circles[0]
	if abs(c.Center.X-48) > 2 || abs(c.Center.Y-48) > 2 || abs(c.Radius-20) > 2 {
		t.Errorf("circle off target: %+v", c)
	}
	if c.Diameter != 2*c.Radius {
		t.Errorf("Diameter: got %d, want %d", c.Diameter, 2*c.Radius)
	}
	if c.Votes < 100 {
		t.Errorf("Votes: got %d, want >= 100", c.Votes)
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", c.Confidence)
	}
	if c.FillColor != "#0000C8" {
		t.Errorf("FillColor: got %s, want #0000C8", c.FillColor)
	}
	if result.EdgePixels == 0 || result.Candidates < 1 {
		t.Errorf("unexpected stats: edges=%d candidates=%d", result.EdgePixels, result.Candidates)
	}
	if result.Annotated != nil {
		t.Error("Annotated should be nil unless requested")
	}
}

func TestDetectCircles_TwoDiscs(t *testing.T) {
	img := createDiscImage(160, 100, color.Black, [3]int{40, 48, 18}, [3]int{112, 48, 22})

	opts := DefaultOptions()
	opts.Params.PeakThreshold = 100
	result, err := DetectCircles(context.Background(), img, hough.Parallel{Threads: 3}, opts, hough.Options{})
	if err != nil {
		t.Fatalf("DetectCircles failed: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 circles, got %d: %+v", result.Count, result.Circles)
	}
	if result.Circles[0].Center.X > result.Circles[1].Center.X {
		// Same bin row, so the left disc is found first.
		t.Errorf("circles out of scan order: %+v", result.Circles)
	}
}

func TestDetectCircles_Annotate(t *testing.T) {
	img := createDiscImage(100, 100, color.Black, [3]int{48, 48, 20})
	opts := discOptions()
	opts.Annotate = true
	opts.Color = "#00FF00"

	result, err := DetectCircles(context.Background(), img, hough.Sequential{}, opts, hough.Options{})
	if err != nil {
		t.Fatalf("DetectCircles failed: %v", err)
	}
	if result.Annotated == nil {
		t.Fatal("expected annotated image")
	}
	if result.Annotated.Bounds() != img.Bounds() {
		t.Errorf("annotated bounds: got %v", result.Annotated.Bounds())
	}

	c := result.Circles[0]
	got := result.Annotated.NRGBAAt(c.Center.X+c.Radius, c.Center.Y)
	if got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("outline pixel: got %v", got)
	}
}

func TestDetectCircles_EmptyImage(t *testing.T) {
	img := createTestImage(100, 100, color.White)

	result, err := DetectCircles(context.Background(), img, hough.Sequential{}, DefaultOptions(), hough.Options{})
	if err != nil {
		t.Fatalf("DetectCircles failed: %v", err)
	}
	if result.Count != 0 || result.EdgePixels != 0 {
		t.Errorf("expected nothing in a blank image, got %d circles from %d edges", result.Count, result.EdgePixels)
	}
}

func TestDetectCircles_InvalidParams(t *testing.T) {
	img := createTestImage(10, 10, color.White)
	opts := DefaultOptions()
	opts.Params.MinRadius = 0

	if _, err := DetectCircles(context.Background(), img, hough.Sequential{}, opts, hough.Options{}); err == nil {
		t.Error("expected error for min radius 0")
	}
	if _, err := DetectCircles(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)), hough.Sequential{}, DefaultOptions(), hough.Options{}); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestDetectCircles_ExecutorsAgree(t *testing.T) {
	img := createDiscImage(130, 90, color.Black, [3]int{35, 40, 17}, [3]int{95, 50, 24})
	opts := DefaultOptions()
	opts.Params.PeakThreshold = 90

	want, err := DetectCircles(context.Background(), img, hough.Sequential{}, opts, hough.Options{})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}

	for _, transfer := range []cluster.Transfer{cluster.TransferFull, cluster.TransferCrop} {
		coord, err := cluster.StartLocal(context.Background(), 3, 2, transfer, zerolog.Nop())
		if err != nil {
			t.Fatalf("StartLocal: %v", err)
		}
		rec := metrics.NewRecorder()
		got, err := DetectCircles(context.Background(), img, coord, opts, hough.Options{Recorder: rec})
		if cerr := coord.Close(); cerr != nil {
			t.Errorf("Close: %v", cerr)
		}
		if err != nil {
			t.Fatalf("%s: %v", transfer, err)
		}

		if got.Count != want.Count || got.Candidates != want.Candidates {
			t.Fatalf("%s: got %d/%d circles/candidates, want %d/%d", transfer, got.Count, got.Candidates, want.Count, want.Candidates)
		}
		for i := range want.Circles {
			if got.Circles[i] != want.Circles[i] {
				t.Errorf("%s: circle %d: got %+v, want %+v", transfer, i, got.Circles[i], want.Circles[i])
			}
		}
		if rec.Len() != 1 {
			t.Errorf("%s: recorder holds %d runs, want 1", transfer, rec.Len())
		}
	}
}

func TestSampleColorHex(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(5, 5, color.RGBA{255, 128, 64, 255})

	hex := sampleColorHex(img, 5, 5)
	if hex != "#FF8040" {
		t.Errorf("sampleColorHex: got %s, want #FF8040", hex)
	}
}
