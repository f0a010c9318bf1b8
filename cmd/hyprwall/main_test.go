package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hyprwall/internal/api"
	"hyprwall/internal/config"
	"hyprwall/internal/optcache"
	"hyprwall/internal/testsupport"
)

const cliMonitors = `[
  {"name": "CLI-1", "width": 1920, "height": 1080, "refreshRate": 60.0, "focused": true},
  {"name": "CLI-2", "width": 1280, "height": 720, "refreshRate": 60.0, "focused": false}
]`

// cliEncoders lists only software encoders so auto falls back to cpu.
const cliEncoders = ` V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D libvpx-vp9           libvpx VP9`

type cliTestEnv struct {
	configPath string
	count      string
	source     string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	work := t.TempDir()
	count := filepath.Join(work, "ffmpeg.count")
	cfg := testsupport.NewConfig(t,
		testsupport.WithEncoder("h264", "auto"),
		testsupport.WithScript("hyprctl", testsupport.HyprctlScript(cliMonitors)),
		testsupport.WithScript("ffmpeg", testsupport.FFmpegScript(count, cliEncoders)),
		testsupport.WithScript("mpvpaper", testsupport.MpvpaperScript()),
	)
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(work, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	source := filepath.Join(work, "media", "clip.mp4")
	testsupport.WriteFile(t, source, 512)

	env := &cliTestEnv{configPath: configPath, count: count, source: source, baseDir: work}
	t.Cleanup(func() {
		_, _, _ = runCLI(t, []string{"stop"}, configPath)
	})
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLISetStatusStop(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"set", env.source, "--profile", "eco"}, env.configPath)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, want := range []string{"Profile:   Eco", "CLI-1", "CLI-2", "encoded"} {
		if !strings.Contains(out, want) {
			t.Fatalf("set output missing %q:\n%s", want, out)
		}
	}
	if got := testsupport.CountLines(t, env.count); got != 2 {
		t.Fatalf("expected 2 encodes, got %d", got)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"== Players ==", "CLI-1:", "[OK] pid", "== Session ==", "Eco"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report struct {
		Player struct {
			Running bool `json:"running"`
		} `json:"player"`
		Session map[string]any `json:"session"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if !report.Player.Running || report.Session["last_profile"] != "eco" {
		t.Fatalf("unexpected status json: %s", out)
	}

	out, _, err = runCLI(t, []string{"stop", "--monitor", "CLI-2"}, env.configPath)
	if err != nil {
		t.Fatalf("stop CLI-2: %v", err)
	}
	if !strings.Contains(out, "CLI-2: stopped pid") {
		t.Fatalf("unexpected stop output: %s", out)
	}

	out, _, err = runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "CLI-1: stopped pid") {
		t.Fatalf("unexpected stop output: %s", out)
	}
}

func TestCLIProfileCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"profile", "set", "eco"}, env.configPath); err == nil {
		t.Fatal("profile set without a session should fail")
	}
	if _, _, err := runCLI(t, []string{"set", env.source, "--auto-power"}, env.configPath); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, _, err := runCLI(t, []string{"profile", "set", "eco_strict"}, env.configPath)
	if err != nil {
		t.Fatalf("profile set: %v", err)
	}
	if !strings.Contains(out, "Profile: Eco Strict (was Balanced)") || !strings.Contains(out, "Pinned") {
		t.Fatalf("unexpected profile set output:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"auto", "--status"}, env.configPath)
	if err != nil {
		t.Fatalf("auto --status: %v", err)
	}
	if !strings.Contains(out, "Override") || !strings.Contains(out, "override") {
		t.Fatalf("auto status should show the override:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"profile", "auto"}, env.configPath); err != nil {
		t.Fatalf("profile auto: %v", err)
	}
	if _, _, err := runCLI(t, []string{"auto", "off"}, env.configPath); err != nil {
		t.Fatalf("auto off: %v", err)
	}
	_, _, err = runCLI(t, []string{"auto", "--once"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "auto-power is disabled") {
		t.Fatalf("auto --once with auto-power off should fail, got %v", err)
	}

	out, _, err = runCLI(t, []string{"profile", "list"}, "")
	if err != nil {
		t.Fatalf("profile list: %v", err)
	}
	for _, want := range []string{"eco_strict", "quality", "off"} {
		if !strings.Contains(out, want) {
			t.Fatalf("profile list missing %q:\n%s", want, out)
		}
	}
}

func TestCLIRejectsBadFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	cases := [][]string{
		{"set", env.source, "--codec", "hevc"},
		{"set", env.source, "--codec", "vp9", "--encoder", "nvenc"},
		{"set", env.source, "--auto-power", "--profile", "off"},
		{"set", env.source, "--monitor", "HDMI-A-9"},
		{"optimize", env.source, "--width", "100"},
		{"profile", "set", "turbo"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestCLIOptimizeAndCache(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "optimize", env.source, "--width", "800", "--height", "600"}, env.configPath)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	var result optcache.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode optimize json: %v\n%s", err, out)
	}
	if result.CacheHit || result.Requested != "auto" || result.Chosen != "cpu" || result.Used != "cpu" {
		t.Fatalf("unexpected optimize result %+v", result)
	}
	if got := testsupport.CountLines(t, env.count); got != 1 {
		t.Fatalf("expected 1 encode, got %d", got)
	}

	out, _, err = runCLI(t, []string{"--json", "optimize", env.source, "--width", "800", "--height", "600"}, env.configPath)
	if err != nil {
		t.Fatalf("optimize again: %v", err)
	}
	var again optcache.Result
	if err := json.Unmarshal([]byte(out), &again); err != nil {
		t.Fatalf("decode optimize json: %v\n%s", err, out)
	}
	if !again.CacheHit || again.Key != result.Key || again.Used != "cpu" {
		t.Fatalf("expected cache hit for %s, got %+v", result.Key, again)
	}
	if got := testsupport.CountLines(t, env.count); got != 1 {
		t.Fatalf("cache hit should not encode, count %d", got)
	}

	out, _, err = runCLI(t, []string{"optimize", env.source, "--monitor", "CLI-2"}, env.configPath)
	if err != nil {
		t.Fatalf("optimize --monitor: %v", err)
	}
	if !strings.Contains(out, "Used:") {
		t.Fatalf("optimize output should list encoder fields:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if strings.Count(out, "KiB")+strings.Count(out, " B ") == 0 || !strings.Contains(out, "KEY") || !strings.Contains(out, result.Key[:8]) {
		t.Fatalf("unexpected cache list:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 2 entries") {
		t.Fatalf("unexpected cache clear output: %s", out)
	}

	out, _, err = runCLI(t, []string{"cache", "size"}, env.configPath)
	if err != nil {
		t.Fatalf("cache size: %v", err)
	}
	if !strings.HasPrefix(out, "0 B in 0 files across 0 entries") {
		t.Fatalf("unexpected cache size output: %s", out)
	}
}

func TestCLIMonitorsLibraryDoctor(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "monitors"}, env.configPath)
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	var monitors api.MonitorsReport
	if err := json.Unmarshal([]byte(out), &monitors); err != nil {
		t.Fatalf("decode monitors: %v", err)
	}
	if len(monitors.Monitors) != 2 || monitors.Reference != "CLI-1" {
		t.Fatalf("unexpected monitors %+v", monitors)
	}

	testsupport.WriteFile(t, filepath.Join(filepath.Dir(env.source), "still.png"), 64)
	testsupport.WriteFile(t, filepath.Join(filepath.Dir(env.source), "notes.txt"), 64)
	out, _, err = runCLI(t, []string{"library", filepath.Dir(env.source)}, env.configPath)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if !strings.Contains(out, "clip.mp4") || !strings.Contains(out, "still.png") || strings.Contains(out, "notes.txt") {
		t.Fatalf("unexpected library output:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"--json", "doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	var report doctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode doctor: %v", err)
	}
	if report.ConfigPath != env.configPath || !report.ConfigExists || report.DaemonRunning {
		t.Fatalf("unexpected doctor report %+v", report)
	}
	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	if !strings.Contains(strings.Join(names, ","), "Hyprland monitors") {
		t.Fatalf("doctor should check monitors, got %v", names)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "hyprwall.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %s", out)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "[power]") || !strings.Contains(out, "strict_enter = 20") {
		t.Fatalf("unexpected show output:\n%s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[encoding]\ncodec = \"hevc\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, bad); err == nil {
		t.Fatal("invalid config should fail validation")
	}
}

func TestCLILogs(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	body := "first\nsecond\nthird\n"
	if err := os.WriteFile(cfg.DaemonLogFile(), []byte(body), 0o644); err != nil {
		t.Fatalf("write daemon log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("unexpected logs output %q", out)
	}

	_, errOut, err := runCLI(t, []string{"logs", "player"}, env.configPath)
	if err != nil {
		t.Fatalf("logs player: %v", err)
	}
	if !strings.Contains(errOut, "is empty") {
		t.Fatalf("expected empty notice, got %q", errOut)
	}

	if _, _, err := runCLI(t, []string{"logs", "kernel"}, env.configPath); err == nil {
		t.Fatal("unknown log source should fail")
	}
}

func TestRunReportsErrorsWithPrefix(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"no-such-command"}, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "hyprwall: unknown command") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestRenderTablePadsShortRowsAndDropsExtraCells(t *testing.T) {
	out := renderTable(
		[]column{leftCol("Name"), rightCol("Size")},
		[][]string{{"a.mp4"}, {"b.mp4", "2 KiB", "extra"}},
	)
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "2 KiB") || strings.Contains(out, "extra") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if got := renderTable(nil, [][]string{{"x"}}); got != "" {
		t.Fatalf("empty columns should render nothing, got %q", got)
	}
}

func TestEncodeJSONKeepsLiteralAngles(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, map[string]string{"file": "/w/a<b>&c.mp4"}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "{\n  \"file\": \"/w/a<b>&c.mp4\"\n}\n" {
		t.Fatalf("unexpected json %q", got)
	}
}
