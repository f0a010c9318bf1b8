package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	notExec := filepath.Join(binDir, "plain")
	if err := os.WriteFile(notExec, script, 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary", Hint: "install it"},
		{Name: "Empty", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if !strings.Contains(results[1].Detail, "install it") {
		t.Fatalf("expected install hint in detail, got %q", results[1].Detail)
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected empty command status %#v", results[2])
	}

	if got := CheckBinaries([]Requirement{{Name: "Plain", Command: notExec}}); got[0].Available {
		t.Fatalf("non-executable file should be unavailable, got %#v", got[0])
	}
}

func TestWallpaperRequirementsAndMissing(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	reqs := WallpaperRequirements(Binaries{
		FFmpeg:   ffmpeg,
		Mpvpaper: "hyprwall-test-missing-mpvpaper",
		Hyprctl:  "hyprwall-test-missing-hyprctl",
		Swww:     "hyprwall-test-missing-swww",
	})
	if len(reqs) != 5 {
		t.Fatalf("expected 5 requirements, got %d", len(reqs))
	}
	missing := MissingRequired(CheckBinaries(reqs))
	if len(missing) != 2 {
		t.Fatalf("expected mpvpaper and hyprctl missing, got %#v", missing)
	}
	for _, m := range missing {
		if m.Optional {
			t.Fatalf("optional dependency reported as required: %#v", m)
		}
	}
}
