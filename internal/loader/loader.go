// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starkmod/starkmod/internal/fetch"
	"github.com/starkmod/starkmod/internal/namespace"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

const (
	// ExportInferred means the export was found by diffing the namespace.
	ExportInferred ExportSource = "inferred"
	// ExportNamed means the export is the property named after the module.
	ExportNamed ExportSource = "named"
	// ExportEmpty means nothing was found and the export is an empty object.
	ExportEmpty ExportSource = "empty"
)

type (
	// Sandbox is the isolation capability a module may be executed under.
	Sandbox interface {
		// Active reports whether the sandbox should be used at all.
		Active() bool
		// CreateProxySandbox builds a fresh isolated namespace seeded from deps.
		CreateProxySandbox(deps map[string]any) error
		// Namespace returns the namespace built by the last CreateProxySandbox.
		Namespace() namespace.Namespace
		// ExecScript runs source inside that namespace.
		ExecScript(source string) error
	}

	// ExportSource records how a module's export was resolved.
	ExportSource string

	// Export is the result of executing a module.
	Export struct {
		// Name is the property the value was read from; empty for ExportEmpty.
		Name   string
		Value  any
		Source ExportSource
	}

	// Loader executes modules, fetching each module's sources once.
	//
	// Executions are serialized: the shared namespace and every sandbox
	// namespace are single-threaded, and snapshots must not observe another
	// module's scripts.
	Loader struct {
		tasks  *TaskCache
		global namespace.Namespace
		logger *slog.Logger
		execMu sync.Mutex
	}

	// Option configures a Loader.
	Option func(*loaderOptions)

	loaderOptions struct {
		fetcher fetch.Fetcher
		logger  *slog.Logger
		global  namespace.Namespace
	}
)

// WithFetcher sets the default fetcher. Without it the loader uses
// fetch.NewClient(fetch.DefaultOptions()).
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *loaderOptions) { o.fetcher = f }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *loaderOptions) { o.logger = logger }
}

// WithGlobalNamespace sets the shared namespace used when no sandbox is active.
func WithGlobalNamespace(ns namespace.Namespace) Option {
	return func(o *loaderOptions) { o.global = ns }
}

// New creates a Loader.
func New(opts ...Option) (*Loader, error) {
	o := loaderOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetcher == nil {
		o.fetcher = fetch.NewClient(fetch.DefaultOptions())
	}
	if o.global == nil {
		js, err := namespace.New(namespace.WithLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("create global namespace: %w", err)
		}
		o.global = js
	}
	return &Loader{
		tasks:  NewTaskCache(o.fetcher),
		global: o.global,
		logger: o.logger,
	}, nil
}

// String returns the string representation of the ExportSource.
func (s ExportSource) String() string { return string(s) }

// Load starts (or joins) the fetch of mod with the default fetcher.
func (l *Loader) Load(ctx context.Context, mod starkmod.Module) *Task {
	return l.tasks.Load(ctx, mod, nil)
}

// LoadWith starts (or joins) the fetch of mod using fetcher for a new task.
func (l *Loader) LoadWith(ctx context.Context, mod starkmod.Module, fetcher fetch.Fetcher) *Task {
	return l.tasks.Load(ctx, mod, fetcher)
}

// RemoveTask evicts the cached fetch for name so the next load refetches.
func (l *Loader) RemoveTask(name starkmod.ModuleName) { l.tasks.RemoveTask(name) }

// ClearTask evicts every cached fetch.
func (l *Loader) ClearTask() { l.tasks.ClearTask() }

// Tasks returns the loader's fetch cache.
func (l *Loader) Tasks() *TaskCache { return l.tasks }

// Execute runs mod and returns its export value. See Run.
func (l *Loader) Execute(ctx context.Context, mod starkmod.Module, sb Sandbox, deps map[string]any) (any, error) {
	exp, err := l.Run(ctx, mod, sb, deps)
	if err != nil {
		return nil, err
	}
	return exp.Value, nil
}

// Run fetches mod's sources (once per name), executes them in order and
// resolves the module's export.
//
// With an active sandbox the sources run in a fresh namespace seeded from
// deps; otherwise they run in the loader's shared namespace and deps is
// ignored. A script that fails is logged and stops the remaining scripts, but
// Run still resolves an export. Only retrieval and sandbox failures are
// returned as errors.
func (l *Loader) Run(ctx context.Context, mod starkmod.Module, sb Sandbox, deps map[string]any) (Export, error) {
	sources, err := l.tasks.Load(ctx, mod, nil).Wait(ctx)
	if err != nil {
		return Export{}, err
	}

	l.execMu.Lock()
	defer l.execMu.Unlock()

	logger := l.logger.With("module", mod.Name.String())
	target, exec, err := l.target(sb, deps)
	if err != nil {
		return Export{}, err
	}
	logger.Debug("executing module", "scripts", len(sources), "sandbox", sb != nil && sb.Active())

	var baseline, before []string
	snapshotted := false
	if len(sources) > 0 {
		baseline = target.OwnKeys()
	}
	for i, source := range sources {
		if i == len(sources)-1 {
			before = target.OwnKeys()
			snapshotted = true
		}
		if err := exec(source); err != nil {
			logger.Error("module script failed", "script", namespace.ScriptName(source), "error", err)
			break
		}
	}

	if snapshotted {
		after := target.OwnKeys()
		key := firstNewKey(before, after)
		if key == "" {
			key = firstNewKey(baseline, after)
		}
		if key != "" {
			value, ok := target.Get(key)
			target.Delete(key)
			if ok {
				logger.Debug("module export inferred", "export", key)
				return Export{Name: key, Value: value, Source: ExportInferred}, nil
			}
		}
	}

	if value, ok := target.Get(mod.Name.String()); ok {
		return Export{Name: mod.Name.String(), Value: value, Source: ExportNamed}, nil
	}
	return Export{Value: map[string]any{}, Source: ExportEmpty}, nil
}

func (l *Loader) target(sb Sandbox, deps map[string]any) (namespace.Namespace, func(string) error, error) {
	if sb == nil || !sb.Active() {
		return l.global, l.global.Execute, nil
	}
	if err := sb.CreateProxySandbox(deps); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSandbox, err)
	}
	ns := sb.Namespace()
	if ns == nil {
		return nil, nil, fmt.Errorf("%w: no namespace after CreateProxySandbox", ErrSandbox)
	}
	return ns, sb.ExecScript, nil
}
