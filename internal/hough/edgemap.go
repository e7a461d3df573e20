package hough

import "fmt"

// Edge and NoEdge are the two pixel values of an EdgeMap.
const (
	NoEdge uint8 = 0
	Edge   uint8 = 255
)

// EdgeMap is a binary edge image, row-major, one byte per pixel.
//
// Pix[y*Width+x] is Edge for an edge pixel and NoEdge otherwise. Origin is the
// image column of local column 0; it is 0 for a full image and the partition
// start for a cropped slice.
type EdgeMap struct {
	Origin int
	Width  int
	Height int
	Pix    []uint8
}

// NewEdgeMap returns an empty edge map of the given size with Origin 0.
func NewEdgeMap(width, height int) *EdgeMap {
	return &EdgeMap{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// EdgeMapFromBytes wraps a raw pixel buffer received from another process.
// The buffer must hold exactly width*height bytes.
func EdgeMapFromBytes(origin, width, height int, pix []uint8) (*EdgeMap, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("%w: edge buffer of %d bytes for %dx%d", ErrGeometry, len(pix), width, height)
	}
	return &EdgeMap{Origin: origin, Width: width, Height: height, Pix: pix}, nil
}

// Span returns the image columns covered by the map.
func (m *EdgeMap) Span() Span {
	return Span{From: m.Origin, To: m.Origin + m.Width}
}

// IsEdge reports whether the pixel at local column x, row y is an edge.
// Out-of-range coordinates are never edges.
func (m *EdgeMap) IsEdge(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] == Edge
}

// Set marks the pixel at local column x, row y. Out-of-range coordinates are ignored.
func (m *EdgeMap) Set(x, y int, edge bool) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	v := NoEdge
	if edge {
		v = Edge
	}
	m.Pix[y*m.Width+x] = v
}

// EdgeCount returns the number of edge pixels.
func (m *EdgeMap) EdgeCount() int {
	n := 0
	for _, v := range m.Pix {
		if v == Edge {
			n++
		}
	}
	return n
}

// Columns copies the image columns [from, from+width) into a new map whose
// Origin is from. Columns outside m are left empty.
func (m *EdgeMap) Columns(from, width int) *EdgeMap {
	out := NewEdgeMap(width, m.Height)
	out.Origin = from
	for y := 0; y < m.Height; y++ {
		for x := 0; x < width; x++ {
			src := from + x - m.Origin
			if src < 0 || src >= m.Width {
				continue
			}
			out.Pix[y*width+x] = m.Pix[y*m.Width+src]
		}
	}
	return out
}

// Span is a half-open range of image columns [From, To).
type Span struct {
	From int
	To   int
}

// Width returns the number of columns in the span.
func (s Span) Width() int {
	return s.To - s.From
}

// Contains reports whether column x lies in the span.
func (s Span) Contains(x int) bool {
	return x >= s.From && x < s.To
}

// Intersect returns the columns common to s and o. The result may be empty.
func (s Span) Intersect(o Span) Span {
	out := Span{From: max(s.From, o.From), To: min(s.To, o.To)}
	if out.To < out.From {
		out.To = out.From
	}
	return out
}
