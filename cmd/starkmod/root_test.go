// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/starkmod/starkmod/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("formatErrorForDisplay(plain) = %q", got)
	}

	actionable := issue.NewErrorContext().
		WithOperation("parse dependency").
		WithSuggestion("Use key=json").
		Wrap(errors.New("bad value")).
		BuildError()
	got := formatErrorForDisplay(actionable, false)
	if !strings.Contains(got, "parse dependency") || !strings.Contains(got, "Use key=json") {
		t.Errorf("formatErrorForDisplay(actionable) = %q", got)
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	t.Parallel()

	cli := newTestCLI(t, nil)
	root := newRootCommand(cli.app)
	for _, name := range []string{"run", "fetch", "manifest", "config"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered (err=%v)", name, err)
		}
	}
	if root.PersistentFlags().Lookup("verbose") == nil || root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected --verbose and --config persistent flags")
	}
}

func TestRootCommand_VerboseLogsDebug(t *testing.T) {
	t.Parallel()

	cli := newTestCLI(t, nil)
	u := cli.source(t, "m.js", "window.m = 1")
	if err := cli.run("--verbose", "run", "m", u); err != nil {
		t.Fatalf("run: unexpected error %v", err)
	}
	if !strings.Contains(cli.stderr.String(), "executing module") {
		t.Errorf("expected debug logs with --verbose, stderr: %s", cli.stderr)
	}
}
