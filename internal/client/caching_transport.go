package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/wolfeidau/photoshare/internal/logger"
)

// NewCachingHTTPClient creates an HTTP client that honours Cache-Control on
// responses. It is used for static image downloads, never for API calls
// whose answers depend on the credential.
func NewCachingHTTPClient(cacheDir string, timeout time.Duration) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		// Use disk-based cache for persistence across restarts
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = logger.NewTransport(http.DefaultTransport)

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// IsCached reports whether resp was served from the local cache.
func IsCached(resp *http.Response) bool {
	return resp.Header.Get(httpcache.XFromCache) == "1"
}
