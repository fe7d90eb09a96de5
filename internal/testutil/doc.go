// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test doubles and helpers shared by the starkmod
// packages.
//
// Fetch doubles (StubFetcher, GatedFetcher) stand in for the network, LogRecorder
// captures slog output for assertions, and the Must* helpers manage environment
// variables and directories with automatic restoration.
package testutil
