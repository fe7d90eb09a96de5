// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/starkmod/starkmod/internal/issue"
	"github.com/starkmod/starkmod/internal/namespace"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

// ErrInvalidDependency is returned for a --dep flag that is not key=json or
// names a reserved global.
var ErrInvalidDependency = errors.New("invalid dependency")

func newRunCommand(app *App) *cobra.Command {
	var (
		noSandbox bool
		deps      []string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run <name> [url]...",
		Short: "Run a module and print its export",
		Long: `Fetch a module's scripts, run them in order and print the value the
module exported.

The export is the first global the module's last script defines. If that
script defines nothing, the first global defined by any of the module's
scripts is used, then the global named after the module, then {}.

Modules run in an isolated namespace unless sandbox.enabled is false in the
config or --no-sandbox is given. Dependencies seed the isolated namespace and
are ignored without a sandbox.`,
		Example: `  # Run a module from a CDN
  starkmod run libA https://cdn.example.com/lib-a/runtime.js https://cdn.example.com/lib-a/index.js

  # Provide globals the module expects
  starkmod run ui https://cdn.example.com/ui.js --dep React='{}' --dep retries=3

  # Print only the export as JSON
  starkmod run libA file:///srv/lib-a.js --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			mod := starkmod.New(args[0], args[1:]...)
			if err := validateModule(mod); err != nil {
				return reportError(app.stderr, err, opts, ExitUsage)
			}
			parsed, err := parseDeps(deps)
			if err != nil {
				return reportError(app.stderr, err, opts, ExitUsage)
			}

			run := ModuleRun{Module: mod, Deps: parsed}
			if cmd.Flags().Changed("no-sandbox") {
				enabled := !noSandbox
				run.Sandbox = &enabled
			}

			results, err := app.Modules.Run(cmd.Context(), RunRequest{
				Modules:    []ModuleRun{run},
				ConfigPath: opts.configPath,
				Verbose:    opts.verbose,
			})
			if err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			res := results[0]
			if res.Err != nil {
				return reportError(app.stderr, res.Err, opts, ExitFailure)
			}

			if asJSON {
				data, err := marshalExport(res.Export.Value)
				if err != nil {
					return reportError(app.stderr, err, opts, ExitFailure)
				}
				fmt.Fprintln(app.stdout, string(data))
				return nil
			}
			if err := printResult(app.stdout, res); err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSandbox, "no-sandbox", false, "run in the shared namespace instead of an isolated one")
	cmd.Flags().StringArrayVar(&deps, "dep", nil, "dependency as key=json, seeded into the sandbox (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print only the export as JSON")

	return cmd
}

// validateModule checks mod's name and URLs and wraps failures for display.
func validateModule(mod starkmod.Module) error {
	if err := mod.Validate(); err != nil {
		return issue.NewErrorContext().
			WithOperation("validate module").
			WithResource(mod.Name.String()).
			WithIssue(issue.InvalidModuleId).
			WithSuggestion("Use absolute http://, https:// or file:// URLs").
			Wrap(err).
			BuildError()
	}
	return nil
}

// parseDeps parses repeated key=json flags into a dependency map.
// Keys are trimmed; values must be valid JSON.
func parseDeps(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	deps := make(map[string]any, len(raw))
	for _, arg := range raw {
		key, value, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)

		var err error
		switch {
		case !found || key == "":
			err = fmt.Errorf("%w: %q is not key=json", ErrInvalidDependency, arg)
		case namespace.IsReserved(key):
			err = fmt.Errorf("%w: %q is a reserved global", ErrInvalidDependency, key)
		default:
			var v any
			if jsonErr := json.Unmarshal([]byte(value), &v); jsonErr != nil {
				err = fmt.Errorf("%w: value of %q is not JSON: %w", ErrInvalidDependency, key, jsonErr)
			} else {
				deps[key] = v
			}
		}

		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse dependency").
				WithResource(arg).
				WithIssue(issue.InvalidDependencyId).
				WithSuggestion(`Use --dep key=json, for example --dep retries=3 or --dep name='"web"'`).
				Wrap(err).
				BuildError()
		}
	}
	return deps, nil
}
