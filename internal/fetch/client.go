// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single http request including the body read.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxSourceBytes bounds a single source body.
	DefaultMaxSourceBytes int64 = 16 << 20
	// DefaultUserAgent is sent with every http request.
	DefaultUserAgent = "starkmod"
)

type (
	// Options configures a Client. Zero values select the defaults.
	Options struct {
		Timeout        time.Duration
		UserAgent      string
		MaxSourceBytes int64
		Headers        map[string]string
		// HTTPClient replaces the internally constructed client when set.
		HTTPClient *http.Client
	}

	// Client fetches http, https and file URLs.
	Client struct {
		http      *http.Client
		userAgent string
		maxBytes  int64
		headers   map[string]string
	}

	httpResponse struct {
		url      string
		body     io.ReadCloser
		maxBytes int64
	}

	fileResponse struct {
		path     string
		maxBytes int64
	}
)

// DefaultOptions returns the options used by NewClient for zero fields.
func DefaultOptions() Options {
	return Options{
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		MaxSourceBytes: DefaultMaxSourceBytes,
	}
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.MaxSourceBytes <= 0 {
		opts.MaxSourceBytes = defaults.MaxSourceBytes
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:      hc,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxSourceBytes,
		headers:   maps.Clone(opts.Headers),
	}
}

// Fetch resolves rawURL. For http(s) the request is sent and the status checked;
// the body is read by Response.Text. For file URLs only existence is checked.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return c.fetchHTTP(ctx, rawURL)
	case "file":
		return c.fetchFile(u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (c *Client) fetchHTTP(ctx context.Context, rawURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.ContentLength > c.maxBytes {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w (%d bytes, limit %d)", rawURL, ErrSourceTooLarge, resp.ContentLength, c.maxBytes)
	}

	return &httpResponse{url: rawURL, body: resp.Body, maxBytes: c.maxBytes}, nil
}

func (c *Client) fetchFile(u *url.URL) (Response, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}
	if info.Size() > c.maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", path, ErrSourceTooLarge, info.Size(), c.maxBytes)
	}
	return &fileResponse{path: path, maxBytes: c.maxBytes}, nil
}

func (r *httpResponse) Text() (string, error) {
	defer r.body.Close()
	return readLimited(r.body, r.maxBytes, r.url)
}

func (r *fileResponse) Text() (string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return readLimited(f, r.maxBytes, r.path)
}

// readLimited reads at most limit bytes and fails if the reader holds more.
func readLimited(rd io.Reader, limit int64, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%s: %w (limit %d)", name, ErrSourceTooLarge, limit)
	}
	return string(data), nil
}
