// Package daemon runs the auto-power loop.
//
// Each iteration reloads the session, samples the power supply and asks the
// policy whether the profile should change. A warranted switch re-optimizes
// and restarts the players through the api controller. The loop then sleeps
// for the battery or AC interval, plus the debounce after a switch. Kernel
// power_supply uevents and session file changes end the sleep early.
//
// A flock on auto.lock keeps a single daemon per state directory.
package daemon
