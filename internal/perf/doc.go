// Package perf samples the resource cost of running wallpaper players.
//
// A Sampler measures each player's process tree (CPU percent and resident
// memory, via gopsutil) over a short window, alongside host-wide figures:
// system memory, CPU and GPU temperatures, RAPL package power and amdgpu
// busy percent. Every figure is optional and stays nil when the host does
// not expose it.
package perf
