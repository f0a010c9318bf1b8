// Package logging assembles structured slog loggers and formatting helpers used
// across hyprwall.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers so components tag their lines with a
// consistent component name and the cause/impact/hint triple that every
// warning carries. A no-op logger is provided for tests and wiring code that
// cannot fail.
//
// Callers build Options themselves; the package does not read configuration
// so lower layers can log without importing it.
package logging
