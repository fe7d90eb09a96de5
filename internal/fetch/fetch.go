// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedScheme is returned for URLs the client cannot serve.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	// ErrSourceTooLarge is returned when a source body exceeds the configured limit.
	ErrSourceTooLarge = errors.New("source exceeds size limit")
	// ErrBadStatus is the sentinel error wrapped by StatusError.
	ErrBadStatus = errors.New("unexpected http status")
)

type (
	// Response is a retrieved resource whose body has not been read yet.
	Response interface {
		// Text reads and returns the whole body. It must be called at most once.
		Text() (string, error)
	}

	// Fetcher retrieves the resource at url.
	Fetcher interface {
		Fetch(ctx context.Context, url string) (Response, error)
	}

	// Func adapts an ordinary function to the Fetcher interface.
	Func func(ctx context.Context, url string) (Response, error)

	// TextResponse is a Response whose body is already in memory.
	TextResponse string

	// StatusError is returned when an HTTP server answers with a non-2xx status.
	StatusError struct {
		URL        string
		StatusCode int
		Status     string
	}
)

// Fetch calls f(ctx, url).
func (f Func) Fetch(ctx context.Context, url string) (Response, error) {
	return f(ctx, url)
}

// Text returns the in-memory body.
func (r TextResponse) Text() (string, error) {
	return string(r), nil
}

// Error implements the error interface for StatusError.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Unwrap returns ErrBadStatus for errors.Is() compatibility.
func (e *StatusError) Unwrap() error { return ErrBadStatus }

// Text fetches url with f and returns its body text.
func Text(ctx context.Context, f Fetcher, url string) (string, error) {
	resp, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("fetch %s: nil response", url)
	}
	return resp.Text()
}
