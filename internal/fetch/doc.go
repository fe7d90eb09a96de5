// SPDX-License-Identifier: MPL-2.0

// Package fetch provides the retrieval capability used to download module sources.
//
// A Fetcher resolves a URL to a Response; Response.Text extracts the body as a
// string. The split mirrors a two-step fetch (headers, then body) so callers can
// fail fast on transport errors before reading potentially large bodies.
//
// Client is the default implementation. It serves http and https URLs through
// net/http and file URLs from the local filesystem, enforcing a per-source
// size limit in both cases.
package fetch
