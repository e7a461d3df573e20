package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/count-circles/internal/hough"
)

// DefaultCircleColor is the outline color used when none is given.
const DefaultCircleColor = "#FF0000"

// Annotate returns a copy of src with every circle outlined one pixel wide and
// the number of circles written at the top-left corner.
//
// Circle coordinates are relative to the top-left of src. An unparsable
// colorHex falls back to DefaultCircleColor.
func Annotate(src image.Image, circles []hough.Candidate, colorHex string) *image.NRGBA {
	out := imaging.Clone(src)

	c, err := parseHexColor(colorHex)
	if err != nil {
		c, _ = parseHexColor(DefaultCircleColor)
	}

	for _, circle := range circles {
		drawCircle(out, circle.X, circle.Y, circle.R, c)
	}
	drawLabel(out, 2, 2, strconv.Itoa(len(circles)), 2, c, color.NRGBA{0, 0, 0, 255})
	return out
}

// parseHexColor parses "#RRGGBB", "#RGB" or the same without '#'.
func parseHexColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// drawCircle plots a midpoint circle. Pixels outside img are skipped.
func drawCircle(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	x, y, d := r, 0, 1-r
	for x >= y {
		octants := [8]image.Point{
			{cx + x, cy + y}, {cx + y, cy + x}, {cx - y, cy + x}, {cx - x, cy + y},
			{cx - x, cy - y}, {cx - y, cy - x}, {cx + y, cy - x}, {cx + x, cy - y},
		}
		for _, p := range octants {
			if p.In(img.Rect) {
				img.SetNRGBA(p.X, p.Y, c)
			}
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// glyphs is a 3x5 pixel font for digits.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text at (x, y) with every font pixel scaled to a scale×scale
// block, on a background box one font pixel wider on each side. Unknown
// characters leave a blank cell.
func drawLabel(img *image.NRGBA, x, y int, text string, scale int, fg, bg color.NRGBA) {
	scale = max(1, scale)
	bounds := img.Bounds()
	charWidth := 4 * scale
	labelWidth := len(text) * charWidth
	labelHeight := 6 * scale

	set := func(px, py int, c color.NRGBA) {
		if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
			img.SetNRGBA(px, py, c)
		}
	}

	// Draw background
	for dy := -scale; dy < labelHeight; dy++ {
		for dx := -scale; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						set(cx+col*scale+sx, y+row*scale+sy, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
