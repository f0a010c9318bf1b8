// Package main hosts the hyprwall CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls on
// api.Service: setting a wallpaper, switching encode profiles, running the
// auto-power daemon and inspecting the cache. Configuration resolution and
// logger setup live in commandContext so subcommands only deal with flags
// and rendering.
//
// Add functionality to the internal packages first and surface it here
// through a dedicated command or flag.
package main
