package client

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/wolfeidau/photoshare/internal/logger"
	"golang.org/x/net/publicsuffix"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8081",
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}

// NewHTTPClient creates the HTTP client used for API calls. The cookie jar
// carries the server's session cookie alongside the bearer credential.
func NewHTTPClient(config Config) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Jar:       jar,
		Timeout:   config.Timeout,
		Transport: logger.NewTransport(http.DefaultTransport),
	}, nil
}
