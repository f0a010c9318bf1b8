package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hyprwall/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "hyprwall", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".cache", "hyprwall")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("cache dir = %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if cfg.Paths.StateDir != filepath.Join(wantCache, "state") {
		t.Fatalf("state dir = %q", cfg.Paths.StateDir)
	}
	if cfg.StateFile() != filepath.Join(wantCache, "state", "state.json") {
		t.Fatalf("state file = %q", cfg.StateFile())
	}
	if cfg.OptimizedDir() != filepath.Join(wantCache, "optimized") {
		t.Fatalf("optimized dir = %q", cfg.OptimizedDir())
	}
	if cfg.Encoding.Codec != "h264" || cfg.Encoding.Encoder != "auto" || cfg.Encoding.Profile != "balanced" {
		t.Fatalf("unexpected encoding defaults: %+v", cfg.Encoding)
	}
	if cfg.Cooldown() != time.Minute {
		t.Fatalf("cooldown = %s", cfg.Cooldown())
	}
	if h := cfg.Hysteresis(); h.StrictEnter != 20 || h.EcoExit != 45 {
		t.Fatalf("unexpected hysteresis %+v", h)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.OptimizedDir(), cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestLoadHonoursXDGCacheHome(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.CacheDir != filepath.Join(xdg, "hyprwall") {
		t.Fatalf("cache dir = %q", cfg.Paths.CacheDir)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hyprwall.toml")

	type payload struct {
		Paths struct {
			CacheDir string `toml:"cache_dir"`
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
		Encoding struct {
			Codec   string `toml:"codec"`
			Encoder string `toml:"encoder"`
			Mode    string `toml:"mode"`
		} `toml:"encoding"`
		Power struct {
			CooldownSeconds int `toml:"cooldown_seconds"`
		} `toml:"power"`
	}
	custom := payload{}
	custom.Paths.CacheDir = filepath.Join(tempDir, "cache")
	custom.Paths.StateDir = filepath.Join(tempDir, "run")
	custom.Encoding.Codec = "VP9"
	custom.Encoding.Encoder = "cpu"
	custom.Encoding.Mode = "Cover"
	custom.Power.CooldownSeconds = 5

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Encoding.Codec != "vp9" || cfg.Encoding.Mode != "cover" {
		t.Fatalf("expected lowercased enums, got %+v", cfg.Encoding)
	}
	if cfg.SessionFile() != filepath.Join(tempDir, "run", "session.json") {
		t.Fatalf("session file = %q", cfg.SessionFile())
	}
	if cfg.Power.CooldownSeconds != 5 {
		t.Fatalf("cooldown = %d", cfg.Power.CooldownSeconds)
	}
	if cfg.Runner.StopTimeoutMS != 2000 {
		t.Fatalf("unset values should keep defaults, got %d", cfg.Runner.StopTimeoutMS)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown codec", "[encoding]\ncodec = \"hevc\"\n", "encoding.codec"},
		{"incompatible encoder", "[encoding]\ncodec = \"vp9\"\nencoder = \"nvenc\"\n", "encoding.encoder"},
		{"unknown profile", "[encoding]\nprofile = \"turbo\"\n", "encoding.profile"},
		{"unknown mode", "[encoding]\nmode = \"zoom\"\n", "encoding.mode"},
		{"eco band inverted", "[power]\neco_enter = 50\neco_exit = 45\n", "power.eco_exit"},
		{"zero interval", "[daemon]\nac_interval_seconds = 0\n", "daemon.ac_interval_seconds"},
		{"unknown key", "[encoding]\nbitrate = 3\n", "bitrate"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	defaults := config.Default()
	if cfg.Daemon.ACIntervalSeconds != defaults.Daemon.ACIntervalSeconds || !cfg.Runner.StopSwww {
		t.Fatalf("sample diverges from defaults: %+v %+v", cfg.Daemon, cfg.Runner)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "[power]") || !strings.Contains(string(data), "cooldown_seconds = 60") {
		t.Fatalf("unexpected encoding:\n%s", data)
	}
}

func TestDefaultConfigValidatesWithAutoEncoder(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	if cfg.Encoding.Encoder != "auto" {
		t.Fatalf("default encoder = %q", cfg.Encoding.Encoder)
	}
	for _, codec := range []string{"h264", "vp9", "av1"} {
		cfg.Encoding.Codec = codec
		if err := cfg.Validate(); err != nil {
			t.Fatalf("auto encoder with %s should validate: %v", codec, err)
		}
	}
}
