package charts

import (
	"sync"
	"time"
)

// Rendered images are cached briefly so a UI polling the chart endpoint does
// not re-render (and re-fetch) on every repaint.
const cacheTTL = 60 * time.Second

type cacheEntry struct {
	createdAt time.Time
	image     []byte
}

var (
	imageCache   = map[string]cacheEntry{}
	imageCacheMu sync.Mutex
)

// CacheGet returns a cached image for the key if it is still fresh.
func CacheGet(key string) ([]byte, bool) {
	imageCacheMu.Lock()
	defer imageCacheMu.Unlock()
	if entry, ok := imageCache[key]; ok {
		if time.Now().Before(entry.createdAt.Add(cacheTTL)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
	}
	return nil, false
}

// CacheSet stores a rendered image under the key.
func CacheSet(key string, img []byte) {
	imageCacheMu.Lock()
	imageCache[key] = cacheEntry{createdAt: time.Now(), image: img}
	imageCacheMu.Unlock()
}
