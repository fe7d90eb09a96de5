// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError pairs a failed operation with the resource involved and
// suggestions the user can act on. Each error may point at an entry of the
// issue catalog: Markdown guidance rendered with glamour when a module fetch,
// a script, a manifest or the configuration fails.
package issue
