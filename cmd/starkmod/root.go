// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/starkmod/starkmod/internal/config"
	"github.com/starkmod/starkmod/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the starkmod command tree around app.
func newRootCommand(app *App) *cobra.Command {
	var (
		verbose bool
		cfgFile string
	)

	rootCmd := &cobra.Command{
		Use:   "starkmod",
		Short: "Load and run remote JavaScript modules",
		Long: TitleStyle.Render("starkmod") + SubtitleStyle.Render(" - Load and run remote JavaScript modules") + `

starkmod fetches a module's scripts concurrently, runs them in order inside
a JavaScript namespace and reports the value the module exported.
Each module's sources are fetched once and reused.

` + SubtitleStyle.Render("Examples:") + `
  starkmod run libA https://cdn.example.com/lib-a.js
  starkmod run --dep React='{}' ui https://cdn.example.com/ui.js
  starkmod fetch libA https://cdn.example.com/lib-a.js
  starkmod manifest run modules.toml
  starkmod config show`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts := requestOptions{
				configPath:  cfgFile,
				verbose:     verbose,
				colorScheme: config.ColorSchemeAuto,
			}
			// Commands that need the config report load errors themselves.
			if cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: cfgFile}); err == nil {
				opts.verbose = opts.verbose || cfg.UI.Verbose
				opts.colorScheme = cfg.UI.ColorScheme
			}
			cmd.SetContext(contextWithRequestOptions(cmd.Context(), opts))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/starkmod/config.cue)")

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(
		newRunCommand(app),
		newFetchCommand(app),
		newManifestCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the App, runs the command tree and exits with the command's
// exit code. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(ExitFailure)
	}

	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// handleError leaves errors already reported by a RunE handler alone and
// defers everything else (usage errors, unknown commands) to fang.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
