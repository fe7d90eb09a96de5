// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"errors"
	"fmt"
	"strings"
)

// sourceURLMarker is the debugging comment appended to every fetched source.
const sourceURLMarker = "//# sourceURL="

// ErrExecution is the sentinel error wrapped by ExecutionError.
var ErrExecution = errors.New("script execution failed")

type (
	// Namespace is an object that scripts execute against and whose own
	// properties can be inspected.
	Namespace interface {
		// OwnKeys lists the namespace's own property names in enumeration order.
		OwnKeys() []string
		// Execute evaluates source in the namespace's scope.
		Execute(source string) error
		// Get returns the exported value of the named property. It reports false
		// when the property is missing, undefined or null.
		Get(name string) (any, bool)
		// Delete removes the named property and reports whether it is gone.
		Delete(name string) bool
	}

	// ExecutionError reports a script that threw or could not be compiled.
	ExecutionError struct {
		// Script is the script's sourceURL, or "anonymous".
		Script string
		Cause  error
	}
)

// Error implements the error interface for ExecutionError.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.Script, e.Cause)
}

// Unwrap returns ErrExecution and the underlying cause.
func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Cause} }

// TagSource appends the sourceURL comment naming url to source.
func TagSource(source, url string) string {
	return source + "\n" + sourceURLMarker + url
}

// ScriptName extracts the sourceURL a fetched source was tagged with.
func ScriptName(source string) string {
	idx := strings.LastIndex(source, sourceURLMarker)
	if idx < 0 {
		return "anonymous"
	}
	name := strings.TrimSpace(source[idx+len(sourceURLMarker):])
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return "anonymous"
	}
	return name
}
