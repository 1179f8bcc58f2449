package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// maxErrorBody bounds how much of an error response is read looking for a message.
const maxErrorBody = 64 * 1024

// TokenSource provides and revokes the credential attached to requests.
// Token reports false when there is no usable credential.
type TokenSource interface {
	Token() (string, bool)
	Clear() error
}

// Options describes a single request.
type Options struct {
	// Method defaults to GET, or POST when a body is set.
	Method string

	// JSON is marshalled as the request body when set.
	JSON any

	// Body and ContentType send a pre-encoded body, such as multipart form data.
	Body        io.Reader
	ContentType string

	// Anonymous requests carry no credential, and a 401 is reported as a
	// RequestError rather than a dead credential.
	Anonymous bool
}

// Fetcher performs authenticated JSON requests against the photo API.
// It makes exactly one attempt per call.
type Fetcher struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource

	mu             sync.Mutex
	onUnauthorized []func()
}

// NewFetcher creates a fetcher for serverURL. tokens may be nil, in which case
// no credential is ever attached.
func NewFetcher(serverURL string, httpClient *http.Client, tokens TokenSource) (*Fetcher, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", serverURL)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Fetcher{
		baseURL:    base,
		httpClient: httpClient,
		tokens:     tokens,
	}, nil
}

// OnUnauthorized registers fn to run after a 401 has cleared the credential.
func (f *Fetcher) OnUnauthorized(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUnauthorized = append(f.onUnauthorized, fn)
}

// URL resolves path against the server URL.
func (f *Fetcher) URL(path string) string {
	return f.baseURL.JoinPath(path).String()
}

// ResourcePath appends id to base as one escaped path segment, so an id
// holding "/" or ".." still addresses a resource under base.
func ResourcePath(base, id string) string {
	segment := url.PathEscape(id)
	if strings.Trim(segment, ".") == "" {
		segment = strings.ReplaceAll(segment, ".", "%2E")
	}
	return strings.TrimSuffix(base, "/") + "/" + segment
}

// Get fetches path and decodes the JSON response into out.
func (f *Fetcher) Get(ctx context.Context, path string, out any) error {
	return f.Request(ctx, path, Options{}, out)
}

// PostJSON posts in as JSON to path and decodes the response into out.
func (f *Fetcher) PostJSON(ctx context.Context, path string, in, out any) error {
	return f.Request(ctx, path, Options{Method: http.MethodPost, JSON: in}, out)
}

// Request performs a single request and decodes a 2xx JSON body into out.
// out may be nil when the caller does not need the response.
func (f *Fetcher) Request(ctx context.Context, path string, opts Options, out any) error {
	req, err := f.newRequest(ctx, path, opts)
	if err != nil {
		return err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized && !opts.Anonymous:
		f.unauthorized(req)
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &RequestError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

func (f *Fetcher) newRequest(ctx context.Context, path string, opts Options) (*http.Request, error) {
	body := opts.Body
	contentType := opts.ContentType

	if opts.JSON != nil {
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
		if body != nil {
			method = http.MethodPost
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, f.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if !opts.Anonymous && f.tokens != nil {
		if token, ok := f.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

// unauthorized treats the 401 as proof the credential is dead.
func (f *Fetcher) unauthorized(req *http.Request) {
	log.Debug().Str("path", req.URL.Path).Msg("credential rejected by server")

	if f.tokens != nil {
		if err := f.tokens.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear rejected credential")
		}
	}

	f.mu.Lock()
	hooks := make([]func(), len(f.onUnauthorized))
	copy(hooks, f.onUnauthorized)
	f.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		return strings.TrimSpace(body.Error)
	}

	return ""
}

// IsUnauthorized reports whether err means the credential was rejected.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
