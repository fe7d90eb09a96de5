// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval is the sentinel error wrapped by RetrievalError.
	ErrRetrieval = errors.New("module retrieval failed")
	// ErrNoFetcher is returned when neither the call nor the cache supplies a fetcher.
	ErrNoFetcher = errors.New("no fetcher configured")
	// ErrSandbox is returned when an active sandbox cannot provide a namespace.
	ErrSandbox = errors.New("sandbox unavailable")
)

// RetrievalError reports a failed fetch or body read for one of a module's URLs.
// Every waiter on the module's task observes the same RetrievalError.
type RetrievalError struct {
	Module string
	URL    string
	Err    error
}

// Error implements the error interface for RetrievalError.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("fetch module %q from %s: %v", e.Module, e.URL, e.Err)
}

// Unwrap returns ErrRetrieval and the underlying cause.
func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }
