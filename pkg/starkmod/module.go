// SPDX-License-Identifier: MPL-2.0

package starkmod

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Supported source URL schemes.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFile  = "file"
)

var (
	// ErrInvalidModuleName is returned when a module name is empty or whitespace-only.
	ErrInvalidModuleName = errors.New("invalid module name")
	// ErrInvalidSourceURL is the sentinel error wrapped by InvalidSourceURLError.
	ErrInvalidSourceURL = errors.New("invalid source url")
	// ErrInvalidModule is the sentinel error wrapped by InvalidModuleError.
	ErrInvalidModule = errors.New("invalid module")
)

type (
	// ModuleName is the logical module identifier and the fetch cache key.
	ModuleName string

	// Module describes a remote module: a name and the ordered URLs of its sources.
	// A Module is treated as immutable once handed to a loader.
	Module struct {
		// Name is the unique cache key for the module's fetched sources.
		Name ModuleName
		// URL lists the module's script sources in execution order.
		URL []string
	}

	// InvalidModuleNameError is returned when a ModuleName is empty or whitespace-only.
	InvalidModuleNameError struct {
		Value ModuleName
	}

	// InvalidSourceURLError is returned when a source URL cannot be parsed,
	// is not absolute, or uses an unsupported scheme.
	InvalidSourceURLError struct {
		Value  string
		Reason string
	}

	// InvalidModuleError collects field-level validation errors for a Module.
	// It wraps ErrInvalidModule for errors.Is() compatibility.
	InvalidModuleError struct {
		Name        ModuleName
		FieldErrors []error
	}
)

// New builds a Module from a name and one or more source URLs.
func New(name string, urls ...string) Module {
	return Module{Name: ModuleName(name), URL: slices.Clone(urls)}
}

// String returns the string representation of the ModuleName.
func (n ModuleName) String() string { return string(n) }

// IsValid returns whether the ModuleName is non-empty and not whitespace-only.
func (n ModuleName) IsValid() (bool, []error) {
	if strings.TrimSpace(string(n)) == "" {
		return false, []error{&InvalidModuleNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidModuleNameError.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }

// Error implements the error interface for InvalidSourceURLError.
func (e *InvalidSourceURLError) Error() string {
	return fmt.Sprintf("invalid source url %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidSourceURL for errors.Is() compatibility.
func (e *InvalidSourceURLError) Unwrap() error { return ErrInvalidSourceURL }

// Error implements the error interface for InvalidModuleError.
func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("invalid module %q: %s", e.Name, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidModule followed by the field errors, so errors.Is()
// matches both the module-level and the field-level sentinels.
func (e *InvalidModuleError) Unwrap() []error {
	return append([]error{ErrInvalidModule}, e.FieldErrors...)
}

// URLs returns a copy of the module's source URLs with surrounding whitespace
// removed. The order is preserved.
func (m Module) URLs() []string {
	out := make([]string, len(m.URL))
	for i, u := range m.URL {
		out[i] = strings.TrimSpace(u)
	}
	return out
}

// Validate checks the module name and every source URL.
// A module without URLs is valid; executing it yields the fallback export.
func (m Module) Validate() error {
	var errs []error
	if valid, fieldErrs := m.Name.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, raw := range m.URLs() {
		if err := ValidateSourceURL(raw); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &InvalidModuleError{Name: m.Name, FieldErrors: errs}
	}
	return nil
}

// ValidateSourceURL checks that raw is an absolute http, https or file URL.
func ValidateSourceURL(raw string) error {
	if raw == "" {
		return &InvalidSourceURLError{Value: raw, Reason: "must be non-empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidSourceURLError{Value: raw, Reason: err.Error()}
	}
	switch strings.ToLower(u.Scheme) {
	case SchemeHTTP, SchemeHTTPS:
		if u.Host == "" {
			return &InvalidSourceURLError{Value: raw, Reason: "missing host"}
		}
	case SchemeFile:
		if u.Path == "" {
			return &InvalidSourceURLError{Value: raw, Reason: "missing path"}
		}
	case "":
		return &InvalidSourceURLError{Value: raw, Reason: "must be absolute"}
	default:
		return &InvalidSourceURLError{Value: raw, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	return nil
}
