package testsupport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile creates a stand-in media file of size bytes, creating parent
// directories. Sizes below one are raised to one so the file is never empty.
// The contents are never decoded; only the fingerprint matters.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(max(size, 1))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CountLines returns the number of lines in path, or zero when it is missing.
func CountLines(t testing.TB, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Count(string(data), "\n")
}

// WritePowerSupply creates a fake sysfs power-supply tree under root. A
// negative percent leaves the battery out.
func WritePowerSupply(t testing.TB, root string, onAC bool, percent int) {
	t.Helper()
	online := "0"
	if onAC {
		online = "1"
	}
	writeSysfs(t, filepath.Join(root, "AC"), map[string]string{"type": "Mains", "online": online})
	if percent >= 0 {
		writeSysfs(t, filepath.Join(root, "BAT0"), map[string]string{"type": "Battery", "capacity": fmt.Sprint(percent)})
	}
}

func writeSysfs(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, value := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(value+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
