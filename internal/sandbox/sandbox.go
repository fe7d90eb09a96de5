// SPDX-License-Identifier: MPL-2.0

// Package sandbox provides the isolation capability for module execution.
//
// A Sandbox builds a private namespace per execution, seeded from a dependency
// map, so modules cannot observe or clobber each other's globals. The namespace
// lives until the next CreateProxySandbox call.
package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starkmod/starkmod/internal/namespace"
)

// ErrNoNamespace is returned when a script is executed before CreateProxySandbox.
var ErrNoNamespace = errors.New("sandbox namespace not created")

type (
	// Sandbox is a goja-backed isolation capability.
	Sandbox struct {
		mu      sync.Mutex
		enabled bool
		logger  *slog.Logger
		current *namespace.JS
	}

	// Option configures a Sandbox.
	Option func(*Sandbox)
)

// WithLogger sets the logger console output of sandboxed scripts is written to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sandbox) { s.logger = logger }
}

// WithEnabled toggles isolation. A disabled sandbox reports itself inactive and
// callers fall back to the shared namespace.
func WithEnabled(enabled bool) Option {
	return func(s *Sandbox) { s.enabled = enabled }
}

// New creates an enabled Sandbox.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{enabled: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports whether isolation is enabled.
func (s *Sandbox) Active() bool {
	return s != nil && s.enabled
}

// CreateProxySandbox replaces the current namespace with a fresh one whose
// globals are seeded from deps.
func (s *Sandbox) CreateProxySandbox(deps map[string]any) error {
	ns, err := namespace.New(
		namespace.WithLogger(s.logger.With("sandbox", true)),
		namespace.WithGlobals(deps),
	)
	if err != nil {
		return fmt.Errorf("create sandbox: %w", err)
	}

	s.mu.Lock()
	s.current = ns
	s.mu.Unlock()
	return nil
}

// Namespace returns the current namespace, or nil before CreateProxySandbox.
func (s *Sandbox) Namespace() namespace.Namespace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current
}

// ExecScript runs source inside the current namespace.
func (s *Sandbox) ExecScript(source string) error {
	s.mu.Lock()
	ns := s.current
	s.mu.Unlock()
	if ns == nil {
		return ErrNoNamespace
	}
	return ns.Execute(source)
}
