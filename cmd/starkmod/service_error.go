// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starkmod/starkmod/internal/config"
	"github.com/starkmod/starkmod/internal/issue"
	"github.com/starkmod/starkmod/internal/loader"
	"github.com/starkmod/starkmod/pkg/starkmod"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. When the CLI layer receives a ServiceError, it renders the
// styled error message (if present) before formatting the underlying error.
// Always create via newServiceError to enforce the Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
// All construction sites must use this instead of struct literals.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyModuleError maps a loader failure to its issue catalog entry.
func classifyModuleError(err error) issue.Id {
	switch {
	case errors.Is(err, loader.ErrRetrieval), errors.Is(err, loader.ErrNoFetcher):
		return issue.ModuleFetchFailedId
	case errors.Is(err, loader.ErrSandbox):
		return issue.SandboxUnavailableId
	case errors.Is(err, starkmod.ErrInvalidModule):
		return issue.InvalidModuleId
	default:
		return 0
	}
}

// issueFor returns the catalog ID attached to err, if any.
func issueFor(err error) issue.Id {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.IssueID != 0 {
		return svcErr.IssueID
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	return classifyModuleError(err)
}

// renderServiceError renders a ServiceError in the CLI layer.
// It prints any styled message first, then the optional issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, scheme config.ColorScheme) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprintln(stderr, svcErr.StyledMessage)
	}

	renderIssue(stderr, svcErr.IssueID, scheme)
}

// renderIssue prints the catalog entry for id using the glamour style that
// matches the configured color scheme.
func renderIssue(stderr io.Writer, id issue.Id, scheme config.ColorScheme) {
	if id == 0 {
		return
	}
	catalogEntry := issue.Get(id)
	if catalogEntry == nil {
		return
	}
	if scheme == "" {
		scheme = config.ColorSchemeAuto
	}
	rendered, err := catalogEntry.Render(scheme.String())
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(stderr, rendered)
}

// reportError prints err for the user and returns the ExitError the RunE
// handler should return.
func reportError(stderr io.Writer, err error, opts requestOptions, code int) *ExitError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(stderr, svcErr, opts.colorScheme)
	} else {
		renderIssue(stderr, issueFor(err), opts.colorScheme)
	}
	fmt.Fprintf(stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, opts.verbose))
	return &ExitError{Code: code, Err: err}
}
