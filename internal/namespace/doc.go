// SPDX-License-Identifier: MPL-2.0

// Package namespace provides the execution targets module sources run against.
//
// A Namespace is an object scripts execute in and whose own properties can be
// listed, read and deleted. JS is the goja-backed implementation: its global
// object is the namespace, aliased as window and self so browser-style bundles
// that assign window.<export> publish into it. A console object forwarding to
// slog is installed as well.
//
// A JS value is not safe for concurrent use; callers serialize access.
package namespace
