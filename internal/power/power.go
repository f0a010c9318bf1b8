// Package power reads AC and battery state from the kernel power-supply class
// and watches it for changes.
package power

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is the sysfs power-supply class directory.
const DefaultRoot = "/sys/class/power_supply"

// Status is a power snapshot. Nil fields are unknown.
type Status struct {
	OnAC    *bool `json:"on_ac"`
	Percent *int  `json:"percent"`
}

// Known reports whether anything was detected.
func (s Status) Known() bool { return s.OnAC != nil || s.Percent != nil }

// Source describes where a wallpaper session is drawing power from, for display.
func (s Status) Source() string {
	switch {
	case s.OnAC == nil:
		return "unknown"
	case *s.OnAC:
		return "ac"
	default:
		return "battery"
	}
}

// Reader samples a power-supply directory.
type Reader struct {
	Root string
}

// NewReader returns a reader for root, or DefaultRoot when empty.
func NewReader(root string) Reader {
	if strings.TrimSpace(root) == "" {
		root = DefaultRoot
	}
	return Reader{Root: root}
}

// Read scans every supply entry. A missing root yields an unknown status.
// Any online AC adapter means on AC; the first battery by name supplies the
// charge percentage.
func (r Reader) Read() Status {
	root := r.Root
	if root == "" {
		root = DefaultRoot
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return Status{}
	}

	var status Status
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		// Entries are usually symlinks into /sys/devices.
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		kind := strings.ToLower(readValue(filepath.Join(dir, "type")))

		switch {
		case isAC(kind, name):
			online, ok := readInt(filepath.Join(dir, "online"))
			if !ok {
				continue
			}
			on := online == 1
			if status.OnAC == nil || on {
				status.OnAC = &on
			}
		case isBattery(kind, name):
			if status.Percent != nil {
				continue
			}
			if capacity, ok := readInt(filepath.Join(dir, "capacity")); ok {
				status.Percent = &capacity
			}
		}
	}
	return status
}

func isAC(kind, name string) bool {
	if kind == "mains" || kind == "ac" {
		return true
	}
	return strings.HasPrefix(name, "ac") || strings.HasPrefix(name, "adp") || strings.HasPrefix(name, "mains")
}

func isBattery(kind, name string) bool {
	return kind == "battery" || strings.HasPrefix(name, "bat")
}

func readValue(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readInt(path string) (int, bool) {
	value := readValue(path)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
