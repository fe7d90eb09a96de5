// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/starkmod/starkmod/internal/issue"
	"github.com/starkmod/starkmod/internal/loader"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

// ErrModuleNotInManifest is returned when --only names a module the manifest
// does not declare.
var ErrModuleNotInManifest = errors.New("module not in manifest")

// newManifestCommand creates the `starkmod manifest` command tree.
func newManifestCommand(app *App) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Run or check a module manifest",
		Long: `Run or check a TOML manifest listing modules.

A manifest declares modules in execution order:

  [[module]]
  name = "libA"
  url = ["${CDN}/lib-a/runtime.js", "${CDN}/lib-a/index.js"]

  [[module]]
  name = "ui"
  url = "${CDN}/ui.js"
  sandbox = true
  [module.deps]
  retries = 3

URLs may reference environment variables as $VAR or ${VAR:-default}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		asJSON bool
		only   []string
	)
	runCmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run every module of a manifest in order",
		Long: `Start fetching every module of the manifest at once, then run the modules
in manifest order. A failing module does not stop the others; the command
exits non-zero if any module failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			m, err := loadManifest(args[0])
			if err != nil {
				return reportError(app.stderr, err, opts, ExitUsage)
			}
			entries, err := selectEntries(m, only)
			if err != nil {
				return reportError(app.stderr, err, opts, ExitUsage)
			}

			runs := make([]ModuleRun, len(entries))
			for i, entry := range entries {
				runs[i] = ModuleRun{Module: entry.Module, Sandbox: entry.Sandbox, Deps: entry.Deps}
			}
			results, err := app.Modules.Run(cmd.Context(), RunRequest{
				Modules:    runs,
				ConfigPath: opts.configPath,
				Verbose:    opts.verbose,
			})
			if err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			return reportResults(app, results, opts, asJSON)
		},
	}
	runCmd.Flags().BoolVar(&asJSON, "json", false, "print the exports as one JSON object keyed by module name")
	runCmd.Flags().StringSliceVar(&only, "only", nil, "run only the named modules (comma separated, repeatable)")

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a manifest without fetching anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			m, err := loadManifest(args[0])
			if err != nil {
				return reportError(app.stderr, err, opts, ExitUsage)
			}
			printManifest(app.stdout, m)
			return nil
		},
	}

	manifestCmd.AddCommand(runCmd, checkCmd)
	return manifestCmd
}

// loadManifest reads the manifest at path, expanding URL variables from the
// process environment, and wraps failures for display.
func loadManifest(path string) (*starkmod.Manifest, error) {
	m, err := starkmod.LoadManifest(path, os.Getenv)
	if err == nil {
		return m, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return nil, issue.NewErrorContext().
			WithOperation("load manifest").
			WithResource(path).
			WithIssue(issue.ManifestNotFoundId).
			WithSuggestion("Check the manifest path for typos").
			Wrap(err).
			BuildError()
	}
	return nil, issue.NewErrorContext().
		WithOperation("parse manifest").
		WithResource(path).
		WithIssue(issue.ManifestParseErrorId).
		WithSuggestion("Run 'starkmod manifest check' to validate the manifest").
		Wrap(err).
		BuildError()
}

// selectEntries returns the entries named by only, in manifest order, or every
// entry when only is empty.
func selectEntries(m *starkmod.Manifest, only []string) ([]starkmod.Entry, error) {
	if len(only) == 0 {
		return m.Modules, nil
	}

	wanted := make(map[starkmod.ModuleName]bool, len(only))
	for _, name := range only {
		if _, ok := m.Lookup(starkmod.ModuleName(name)); !ok {
			return nil, issue.NewErrorContext().
				WithOperation("select modules").
				WithResource(m.Path).
				WithIssue(issue.InvalidModuleId).
				WithSuggestion("Run 'starkmod manifest check' to list the declared modules").
				Wrap(fmt.Errorf("%w: %s", ErrModuleNotInManifest, name)).
				BuildError()
		}
		wanted[starkmod.ModuleName(name)] = true
	}

	entries := make([]starkmod.Entry, 0, len(wanted))
	for _, entry := range m.Modules {
		if wanted[entry.Name] {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// reportResults prints every result and returns an ExitError if any failed.
func reportResults(app *App, results []loader.Result, opts requestOptions, asJSON bool) error {
	var failed []error
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Err)
			reportError(app.stderr, res.Err, opts, ExitFailure)
			continue
		}
		if asJSON {
			continue
		}
		if err := printResult(app.stdout, res); err != nil {
			failed = append(failed, err)
		}
	}
	if asJSON {
		if err := printResultsJSON(app.stdout, results); err != nil {
			failed = append(failed, err)
		}
	}

	if len(failed) > 0 {
		return &ExitError{Code: ExitFailure, Err: errors.Join(failed...)}
	}
	return nil
}

func printManifest(w io.Writer, m *starkmod.Manifest) {
	fmt.Fprintf(w, "%s %s: %d module(s)\n", SuccessStyle.Render("✓"), m.Path, len(m.Modules))
	for _, entry := range m.Modules {
		mode := "default"
		if entry.Sandbox != nil {
			mode = "shared"
			if *entry.Sandbox {
				mode = "sandbox"
			}
		}
		fmt.Fprintf(w, "  %s %s\n", TitleStyle.Render(entry.Name.String()), SubtitleStyle.Render(fmt.Sprintf("(%s, %d deps)", mode, len(entry.Deps))))
		for _, u := range entry.URLs() {
			fmt.Fprintf(w, "    %s\n", CmdStyle.Render(u))
		}
	}
}
