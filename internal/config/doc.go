// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/starkmod/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/starkmod/config.cue on macOS and
// %APPDATA%\starkmod\config.cue on Windows), falling back to ./config.cue. It covers the
// fetch client (timeout, user agent, size limit, headers), sandbox defaults and UI
// settings. STARKMOD_* environment variables override file values.
//
// Files are validated against the embedded CUE schema (config_schema.cue) before they are
// merged into Viper, so unknown keys and wrong types are reported with their CUE path.
package config
