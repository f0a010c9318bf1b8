// Package daemonctl starts and stops a background auto-power daemon.
//
// The daemon itself is `hyprwall auto` running in its own session. This
// package launches it detached, waits for it to take auto.lock, and stops
// it through the pid file with SIGTERM, escalating to SIGKILL after a grace
// period.
package daemonctl
