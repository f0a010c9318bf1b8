// Package config loads, normalizes, and validates hyprwall configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts and XDG_CACHE_HOME), and reads TOML files. The Config type
// centralizes the cache and state locations, external binaries, encoding
// defaults, power thresholds, and daemon timing so every command resolves
// them in one pass.
//
// Codec, encoder, profile, and display mode names are checked against the
// encoding and media parsers, so an invalid value fails at load time instead
// of on the first transcode.
package config
