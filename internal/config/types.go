// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultTimeout is the default per-request fetch timeout.
	DefaultTimeout Duration = "30s"
	// DefaultUserAgent is sent with every HTTP request unless overridden.
	DefaultUserAgent = "starkmod"
	// DefaultMaxSourceBytes caps a single source body at 16 MiB.
	DefaultMaxSourceBytes int64 = 16 << 20
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDuration is returned when a Duration cannot be parsed or is not positive.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidHeader is returned when a configured header name is empty or malformed.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrInvalidFetchConfig is the sentinel error wrapped by InvalidFetchConfigError.
	ErrInvalidFetchConfig = errors.New("invalid fetch config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// Duration is a Go duration string such as "30s".
	Duration string

	// InvalidDurationError is returned when a Duration is unparsable or not positive.
	InvalidDurationError struct {
		Value  Duration
		Reason string
	}

	// InvalidHeaderError is returned for a header name that cannot be sent.
	InvalidHeaderError struct {
		Name string
	}

	// InvalidFetchConfigError is returned when a FetchConfig has invalid fields.
	InvalidFetchConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Fetch configures how module sources are retrieved.
		Fetch FetchConfig `json:"fetch" mapstructure:"fetch"`
		// Sandbox sets execution isolation defaults.
		Sandbox SandboxConfig `json:"sandbox" mapstructure:"sandbox"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// FetchConfig configures the HTTP and file fetch client.
	FetchConfig struct {
		Timeout        Duration          `json:"timeout" mapstructure:"timeout"`
		UserAgent      string            `json:"user_agent" mapstructure:"user_agent"`
		MaxSourceBytes int64             `json:"max_source_bytes" mapstructure:"max_source_bytes"`
		Headers        map[string]string `json:"headers" mapstructure:"headers"`
	}

	// SandboxConfig configures execution isolation.
	SandboxConfig struct {
		// Enabled runs modules in an isolated namespace unless overridden per run (default: true).
		Enabled bool `json:"enabled" mapstructure:"enabled"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:        DefaultTimeout,
			UserAgent:      DefaultUserAgent,
			MaxSourceBytes: DefaultMaxSourceBytes,
			Headers:        map[string]string{},
		},
		Sandbox: SandboxConfig{Enabled: true},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined schemes,
// and a list of validation errors if it is not.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the Duration.
func (d Duration) String() string { return string(d) }

// Parse converts the Duration to a time.Duration.
func (d Duration) Parse() (time.Duration, error) {
	parsed, err := time.ParseDuration(string(d))
	if err != nil {
		return 0, &InvalidDurationError{Value: d, Reason: err.Error()}
	}
	if parsed <= 0 {
		return 0, &InvalidDurationError{Value: d, Reason: "must be positive"}
	}
	return parsed, nil
}

// IsValid returns whether the Duration parses to a positive time.Duration.
func (d Duration) IsValid() (bool, []error) {
	if _, err := d.Parse(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidDurationError.
func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid duration %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidDuration for errors.Is() compatibility.
func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// Error implements the error interface for InvalidHeaderError.
func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid header name %q", e.Name)
}

// Unwrap returns ErrInvalidHeader for errors.Is() compatibility.
func (e *InvalidHeaderError) Unwrap() error { return ErrInvalidHeader }

// IsValid returns whether the FetchConfig has valid fields.
func (c FetchConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Timeout.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.MaxSourceBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_source_bytes must be positive, got %d", c.MaxSourceBytes))
	}
	for name := range c.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t\r\n:") {
			errs = append(errs, &InvalidHeaderError{Name: name})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidFetchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidFetchConfigError.
func (e *InvalidFetchConfigError) Error() string {
	return fmt.Sprintf("invalid fetch config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidFetchConfig and the field errors.
func (e *InvalidFetchConfigError) Unwrap() []error {
	return append([]error{ErrInvalidFetchConfig}, e.FieldErrors...)
}

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		return false, []error{&InvalidUIConfigError{FieldErrors: fieldErrs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidUIConfig and the field errors.
func (e *InvalidUIConfigError) Unwrap() []error {
	return append([]error{ErrInvalidUIConfig}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Fetch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
