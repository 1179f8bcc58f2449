package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/photoshare/internal/client"
)

// Client downloads photo files. Responses go through an HTTP cache, so a file
// the server marks cacheable is only transferred once.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient creates an image client for serverURL. httpClient is normally
// built with client.NewCachingHTTPClient.
func NewClient(serverURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", serverURL)
	}
	if httpClient == nil {
		httpClient = client.NewCachingHTTPClient("", 0)
	}
	return &Client{baseURL: base, httpClient: httpClient}, nil
}

// Fetch writes the bytes of fileName to w and reports whether they came from the cache.
func (c *Client) Fetch(ctx context.Context, fileName string, w io.Writer) (bool, error) {
	if fileName == "" || strings.Contains(fileName, "/") || strings.Contains(fileName, "..") {
		return false, fmt.Errorf("%w: invalid file name %q", client.ErrValidation, fileName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath("images", fileName).String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &client.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, &client.RequestError{Status: resp.StatusCode}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read image %s: %w", fileName, err)
	}

	cached := client.IsCached(resp)

	log.Debug().
		Str("file", fileName).
		Int64("bytes", n).
		Bool("cached", cached).
		Msg("image fetched")

	return cached, nil
}
