package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Open reads and decodes the image at path. PNG, JPEG and GIF are supported.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// DefaultCacheSize is the number of decoded images NewImageCache keeps.
const DefaultCacheSize = 16

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// The MCP server loads an image once and then previews or augments it many
// times; the cache keeps those calls off the disk. An entry is reloaded when
// the file's size or modification time changes, and the least recently used
// entry is dropped once the cache holds more than its limit.
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/page.png")
//	if err != nil {
//	    return err
//	}
//	defer cache.Evict("/path/to/page.png")
type ImageCache struct {
	mu     sync.Mutex
	limit  int
	clock  uint64
	images map[string]*cacheEntry
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
	used    uint64
}

// NewImageCache creates an empty cache holding up to DefaultCacheSize images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheSize)
}

// NewImageCacheSize creates an empty cache holding up to limit images. A
// limit below one is treated as one.
func NewImageCacheSize(limit int) *ImageCache {
	return &ImageCache{
		limit:  max(limit, 1),
		images: make(map[string]*cacheEntry),
	}
}

// Load returns the cached image for path, decoding it from disk on first use
// or when the file changed since it was cached.
//
// The image is cached under the exact path string provided, so relative and
// absolute spellings of the same file are separate entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.Lock()
	if e, ok := c.images[path]; ok && e.size == stat.Size() && e.modTime.Equal(stat.ModTime()) {
		c.clock++
		e.used = c.clock
		c.mu.Unlock()
		return e.img, nil
	}
	c.mu.Unlock()

	img, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	c.images[path] = &cacheEntry{img: img, modTime: stat.ModTime(), size: stat.Size(), used: c.clock}
	for len(c.images) > c.limit {
		c.dropOldest()
	}
	return img, nil
}

// dropOldest removes the least recently used entry. c.mu must be held.
func (c *ImageCache) dropOldest() {
	var (
		oldest string
		used   uint64
		found  bool
	)
	for p, e := range c.images {
		if !found || e.used < used {
			oldest, used, found = p, e.used, true
		}
	}
	delete(c.images, oldest)
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// Evict removes the image cached under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// Mode names the pixel layout: "gray", "rgb" or "rgba".
	Mode string `json:"mode"`

	// Channels is the channel count the image has when read as an array.
	Channels int `json:"channels"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and describes it.
//
// # Mode Detection
//
// The mode is determined by the decoded Go image type:
//   - *image.Gray, *image.Gray16 -> "gray" (1 channel)
//   - *image.RGBA, *image.NRGBA and their 16-bit forms -> "rgba" (3 channels
//     once read as an array, since alpha is dropped)
//   - everything else, e.g. *image.YCbCr from JPEG -> "rgb" (3 channels)
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
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	mode, channels := "rgb", 3
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		mode, channels = "gray", 1
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		mode = "rgba"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		Mode:          mode,
		Channels:      channels,
		FileSizeBytes: stat.Size(),
	}, nil
}
