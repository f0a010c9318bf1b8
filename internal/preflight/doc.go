// Package preflight provides readiness checks for the programs, directories
// and hardware hyprwall depends on.
//
// These checks run in two contexts:
//   - `hyprwall doctor` runs CheckSystemDeps and RunAll and renders every
//     result.
//   - `hyprwall set` and the auto daemon call RequireBinaries so a missing
//     player or transcoder fails before any work starts.
//
// Optional programs and hardware encoders are informational: their absence
// never fails a check.
package preflight
