// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starkmod/starkmod/internal/config"
	"github.com/starkmod/starkmod/internal/fetch"
	"github.com/starkmod/starkmod/internal/loader"
	"github.com/starkmod/starkmod/internal/sandbox"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

type (
	requestOptionsContextKey struct{}

	// requestOptions are the root flag values, merged with the UI config,
	// for one CLI invocation.
	requestOptions struct {
		configPath  string
		verbose     bool
		colorScheme config.ColorScheme
	}

	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: all Cobra command handlers receive an App reference and delegate
	// module work through its service interfaces (Config, Modules).
	App struct {
		Config  ConfigProvider
		Modules ModuleService
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Modules ModuleService
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ModuleRun is one module execution requested by the CLI.
	ModuleRun struct {
		Module starkmod.Module
		// Sandbox overrides sandbox.enabled from the config when non-nil.
		Sandbox *bool
		Deps    map[string]any
	}

	// RunRequest captures a batch of module executions as an immutable value.
	RunRequest struct {
		Modules    []ModuleRun
		ConfigPath string
		Verbose    bool
	}

	// FetchRequest asks for a module's sources without executing them.
	FetchRequest struct {
		Module     starkmod.Module
		ConfigPath string
		Verbose    bool
	}

	// ModuleService fetches and executes modules. Implementations must not write
	// results to stdout; failures come back as errors inside the results.
	ModuleService interface {
		Run(ctx context.Context, req RunRequest) ([]loader.Result, error)
		Fetch(ctx context.Context, req FetchRequest) ([]string, error)
	}

	// ConfigProvider loads configuration using explicit options.
	// This abstraction enables testing with custom config sources.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
		LoadWithSource(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// moduleService builds a loader per request from the loaded configuration.
	moduleService struct {
		config ConfigProvider
		stderr io.Writer
	}

	// moduleSession is the per-request state built by moduleService.
	moduleSession struct {
		loader *loader.Loader
		cfg    *config.Config
		logger *slog.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Modules == nil {
		deps.Modules = &moduleService{config: deps.Config, stderr: deps.Stderr}
	}

	return &App{
		Config:  deps.Config,
		Modules: deps.Modules,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}, nil
}

func contextWithRequestOptions(ctx context.Context, opts requestOptions) context.Context {
	return context.WithValue(ctx, requestOptionsContextKey{}, opts)
}

func requestOptionsFromContext(ctx context.Context) requestOptions {
	if v, ok := ctx.Value(requestOptionsContextKey{}).(requestOptions); ok {
		return v
	}
	return requestOptions{colorScheme: config.ColorSchemeAuto}
}

// fetchOptions converts the fetch section of cfg into client options.
func fetchOptions(cfg *config.Config) (fetch.Options, error) {
	timeout, err := cfg.Fetch.Timeout.Parse()
	if err != nil {
		return fetch.Options{}, fmt.Errorf("fetch.timeout: %w", err)
	}
	return fetch.Options{
		Timeout:        timeout,
		UserAgent:      cfg.Fetch.UserAgent,
		MaxSourceBytes: cfg.Fetch.MaxSourceBytes,
		Headers:        cfg.Fetch.Headers,
	}, nil
}

func (s *moduleService) session(ctx context.Context, configPath string, verbose bool) (*moduleSession, error) {
	cfg, err := s.config.Load(ctx, config.LoadOptions{ConfigFilePath: configPath})
	if err != nil {
		return nil, err
	}
	opts, err := fetchOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := newLogger(s.stderr, verbose || cfg.UI.Verbose)
	ld, err := loader.New(
		loader.WithFetcher(fetch.NewClient(opts)),
		loader.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &moduleSession{loader: ld, cfg: cfg, logger: logger}, nil
}

// Run executes req's modules in order after starting all of their fetches.
func (s *moduleService) Run(ctx context.Context, req RunRequest) ([]loader.Result, error) {
	sess, err := s.session(ctx, req.ConfigPath, req.Verbose)
	if err != nil {
		return nil, err
	}

	jobs := make([]loader.Job, len(req.Modules))
	for i, run := range req.Modules {
		enabled := sess.cfg.Sandbox.Enabled
		if run.Sandbox != nil {
			enabled = *run.Sandbox
		}
		if !enabled && len(run.Deps) > 0 {
			sess.logger.Warn("dependencies are ignored without a sandbox", "module", run.Module.Name.String())
		}
		jobs[i] = loader.Job{
			Module:  run.Module,
			Sandbox: sandbox.New(sandbox.WithEnabled(enabled), sandbox.WithLogger(sess.logger)),
			Deps:    run.Deps,
		}
	}

	results := sess.loader.RunAll(ctx, jobs)
	for i := range results {
		if results[i].Err == nil {
			continue
		}
		results[i].Err = newServiceError(
			results[i].Err,
			classifyModuleError(results[i].Err),
			ErrorStyle.Render("✗")+" module "+TitleStyle.Render(results[i].Module.String())+" failed",
		)
	}
	return results, nil
}

// Fetch retrieves req.Module's sources, each tagged with its source URL.
func (s *moduleService) Fetch(ctx context.Context, req FetchRequest) ([]string, error) {
	sess, err := s.session(ctx, req.ConfigPath, req.Verbose)
	if err != nil {
		return nil, err
	}
	sources, err := sess.loader.Load(ctx, req.Module).Wait(ctx)
	if err != nil {
		return nil, newServiceError(err, classifyModuleError(err), "")
	}
	return sources, nil
}
