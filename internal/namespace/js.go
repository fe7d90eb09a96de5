// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dop251/goja"
)

// Reserved global names installed by New.
var reservedGlobals = []string{"window", "self", "globalThis", "console"}

// ErrReservedGlobal is returned when a seeded global would shadow a built-in alias.
var ErrReservedGlobal = errors.New("reserved global name")

type (
	// JS is a Namespace backed by a goja runtime's global object.
	JS struct {
		rt     *goja.Runtime
		global *goja.Object
		logger *slog.Logger
	}

	// Option configures a JS namespace.
	Option func(*jsOptions)

	jsOptions struct {
		logger  *slog.Logger
		globals map[string]any
	}
)

// WithLogger routes console output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *jsOptions) { o.logger = logger }
}

// WithGlobals seeds the namespace with the given properties before any script runs.
func WithGlobals(globals map[string]any) Option {
	return func(o *jsOptions) { o.globals = globals }
}

// IsReserved reports whether name is one of the globals New installs itself.
func IsReserved(name string) bool {
	return slices.Contains(reservedGlobals, name)
}

// New creates a fresh namespace.
func New(opts ...Option) (*JS, error) {
	o := jsOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	j := &JS{rt: rt, global: rt.GlobalObject(), logger: o.logger}

	if err := j.installGlobals(); err != nil {
		return nil, err
	}
	for name, value := range o.globals {
		if name == "" {
			return nil, fmt.Errorf("seed global: empty name")
		}
		if IsReserved(name) {
			return nil, fmt.Errorf("seed global %q: %w", name, ErrReservedGlobal)
		}
		if err := rt.Set(name, value); err != nil {
			return nil, fmt.Errorf("seed global %q: %w", name, err)
		}
	}
	return j, nil
}

// OwnKeys lists every own string-keyed property of the global object,
// including non-enumerable built-ins.
func (j *JS) OwnKeys() []string {
	return j.global.GetOwnPropertyNames()
}

// Execute runs source as a classic (non-module) script.
func (j *JS) Execute(source string) (err error) {
	name := ScriptName(source)
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Script: name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	if _, runErr := j.rt.RunScript(name, source); runErr != nil {
		return &ExecutionError{Script: name, Cause: runErr}
	}
	return nil
}

// Get exports the named global.
func (j *JS) Get(name string) (any, bool) {
	v := j.global.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	return v.Export(), true
}

// Delete removes the named global. Properties created by var or function
// declarations are not configurable; those are set to undefined instead and
// Delete reports false.
func (j *JS) Delete(name string) bool {
	if err := j.global.Delete(name); err != nil {
		j.logger.Debug("global not configurable, clearing value", "name", name, "error", err)
		_ = j.global.Set(name, goja.Undefined())
		return false
	}
	return true
}

// Set assigns a global property.
func (j *JS) Set(name string, value any) error {
	return j.rt.Set(name, value)
}

func (j *JS) installGlobals() error {
	for _, alias := range []string{"window", "self"} {
		if err := j.rt.Set(alias, j.global); err != nil {
			return fmt.Errorf("install %s: %w", alias, err)
		}
	}

	console := j.rt.NewObject()
	levels := map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for method, level := range levels {
		if err := console.Set(method, j.consoleFunc(level)); err != nil {
			return fmt.Errorf("install console.%s: %w", method, err)
		}
	}
	return j.rt.Set("console", console)
}

func (j *JS) consoleFunc(level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		j.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "console")
		return goja.Undefined()
	}
}
