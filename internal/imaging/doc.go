// Package imaging turns image files into edge maps and renders detection results.
//
// The preprocessing chain mirrors what the circle transform expects:
//
//	Load → Grayscale → Blur → EdgeDetect → *hough.EdgeMap
//
// and on the way out Annotate draws the kept circles onto a copy of the
// original image, ready for Save or EncodePNGBase64.
//
// # Coordinate System
//
// All pixel coordinates are 0-based from the top-left corner of the image:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Kernel Sizes
//
// Blur kernels are clamped to odd sizes between 1 and 21 and edge apertures to
// odd sizes between 3 and 7. Even sizes are rounded up.
package imaging
