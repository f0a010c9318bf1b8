// Package api is the controller facade shared by the CLI and the auto-power
// daemon. It wires configuration into the optimization cache, the player
// runner, the session store and the power policy, and exposes each
// user-facing operation as a single method.
//
// # Key Types
//
// Service: owns the collaborators built from config.Config and serializes
// state and session mutations with an advisory lock on state.lock.
//
// SetRequest/SetResult: the set flow. The source is validated, monitors are
// resolved through hyprctl, one artifact is produced per unique resolution,
// the players are restarted and the session is saved.
//
// ApplyResult: re-optimizes the session source for a new profile and
// restarts the players. Used by `profile set` (pinned) and by the daemon.
//
// StatusReport/AutoReport: read-only snapshots combining runner status, the
// session, the power reading and the policy decision.
//
// # Locking
//
// Encoding runs outside the lock. Only the stop, start and save sequence is
// held under it, so a long transcode never blocks `hyprwall stop`.
package api
