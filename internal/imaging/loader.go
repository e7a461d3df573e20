package imaging

import (
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
)

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// Benchmark runs and repeated tool calls detect circles in the same file many
// times; the cache keeps the decode out of the measured loop. ImageCache is safe
// for concurrent use by multiple goroutines.
//
// Cached images remain in memory until their TTL passes (see NewImageCacheTTL)
// or they are removed via Evict() or Clear().
type ImageCache struct {
	images *cache.Cache
	ttl    time.Duration
}

// NewImageCache creates and initializes a new empty image cache whose entries
// never expire.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: cache.New(cache.NoExpiration, 0),
		ttl:    cache.NoExpiration,
	}
}

// NewImageCacheTTL creates an image cache that drops images ttl after they
// were loaded. Expired entries are purged every ttl by a background goroutine.
// A ttl <= 0 behaves like NewImageCache.
func NewImageCacheTTL(ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		return NewImageCache()
	}
	return &ImageCache{
		images: cache.New(ttl, ttl),
		ttl:    ttl,
	}
}

// Load retrieves an image from the cache or decodes it from disk if not cached.
//
// Any format registered with the image package is accepted (PNG, JPEG, GIF, BMP
// and TIFF). EXIF orientation is applied, so photographs are voted on the way
// they are displayed.
//
// The image is cached using the exact path string provided. Different paths to
// the same file result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	if img, ok := c.images.Get(path); ok {
		return img.(image.Image), nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	// First decode wins when several goroutines race on the same path.
	if err := c.images.Add(path, img, c.ttl); err != nil {
		if cached, ok := c.images.Get(path); ok {
			return cached.(image.Image), nil
		}
		c.images.Set(path, img, c.ttl)
	}
	return img, nil
}

// Len returns the number of cached images, including expired ones not yet
// purged.
func (c *ImageCache) Len() int {
	return c.images.ItemCount()
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.images.Flush()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.images.Delete(path)
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif", "bmp",
	// "tiff" or "unknown".
	Format string `json:"format"`

	// Pixels is Width × Height, the number of pixels the edge detector scans.
	Pixels int `json:"pixels"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		Pixels:        bounds.Dx() * bounds.Dy(),
		FileSizeBytes: stat.Size(),
	}, nil
}
