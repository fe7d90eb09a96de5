// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/starkmod/starkmod/internal/fetch"
)

type (
	// StubFetcher serves canned sources per URL and counts calls.
	// Unknown URLs fail with an error wrapping fs.ErrNotExist.
	StubFetcher struct {
		mu         sync.Mutex
		sources    map[string]string
		errs       map[string]error
		bodyErrs   map[string]error
		calls      map[string]int
		order      []string
		onResponse func(url string)
	}

	// GatedFetcher holds every Fetch until Release is called.
	GatedFetcher struct {
		next    fetch.Fetcher
		gate    chan struct{}
		once    sync.Once
		started chan string
	}

	bodyErrorResponse struct{ err error }
)

// NewStubFetcher creates a StubFetcher with no sources.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		sources:  make(map[string]string),
		errs:     make(map[string]error),
		bodyErrs: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// WithSource registers the body served for url.
func (f *StubFetcher) WithSource(url, source string) *StubFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[url] = source
	return f
}

// WithError makes Fetch of url fail with err.
func (f *StubFetcher) WithError(url string, err error) *StubFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

// WithBodyError makes Fetch of url succeed and the body read fail with err.
func (f *StubFetcher) WithBodyError(url string, err error) *StubFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodyErrs[url] = err
	return f
}

// OnResponse registers a callback invoked after each successful Fetch.
func (f *StubFetcher) OnResponse(fn func(url string)) *StubFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onResponse = fn
	return f
}

// Fetch implements fetch.Fetcher.
func (f *StubFetcher) Fetch(ctx context.Context, url string) (fetch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[url]++
	f.order = append(f.order, url)
	err, failed := f.errs[url]
	bodyErr, badBody := f.bodyErrs[url]
	source, ok := f.sources[url]
	onResponse := f.onResponse
	f.mu.Unlock()

	switch {
	case failed:
		return nil, err
	case badBody:
		return bodyErrorResponse{err: bodyErr}, nil
	case !ok:
		return nil, fmt.Errorf("no stub for %s: %w", url, fs.ErrNotExist)
	}
	if onResponse != nil {
		onResponse(url)
	}
	return fetch.TextResponse(source), nil
}

// Calls returns how many times url was fetched.
func (f *StubFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// TotalCalls returns the number of Fetch calls across all URLs.
func (f *StubFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func (r bodyErrorResponse) Text() (string, error) { return "", r.err }

// NewGatedFetcher wraps next so that fetches block until Release.
func NewGatedFetcher(next fetch.Fetcher) *GatedFetcher {
	return &GatedFetcher{
		next:    next,
		gate:    make(chan struct{}),
		started: make(chan string, 64),
	}
}

// Fetch implements fetch.Fetcher.
func (g *GatedFetcher) Fetch(ctx context.Context, url string) (fetch.Response, error) {
	select {
	case g.started <- url:
	default:
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.next.Fetch(ctx, url)
}

// Started receives the URL of each Fetch as it begins waiting.
func (g *GatedFetcher) Started() <-chan string { return g.started }

// Release unblocks all current and future fetches.
func (g *GatedFetcher) Release() {
	g.once.Do(func() { close(g.gate) })
}
