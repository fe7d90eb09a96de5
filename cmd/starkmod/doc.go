// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for starkmod.
//
// This package implements the Cobra command hierarchy for the starkmod CLI:
// running remote modules, inspecting fetched sources, running module
// manifests and managing the user configuration.
package cmd
