// SPDX-License-Identifier: MPL-2.0

// Package starkmod defines remote module descriptors and the manifest format
// used to declare them.
//
// A module is a logical name plus an ordered list of script URLs. The name is
// the cache key for fetched sources; the URL order is the execution order.
//
// # Manifest
//
// Manifests are TOML documents listing modules:
//
//	[[module]]
//	name = "charts"
//	url = ["${CDN}/vendor.js", "${CDN}/charts.js"]
//	sandbox = true
//
//	[module.deps]
//	theme = "dark"
//
// URLs may reference environment variables using shell parameter syntax; they
// are expanded with mvdan.cc/sh before validation. Command substitution is
// rejected.
package starkmod
