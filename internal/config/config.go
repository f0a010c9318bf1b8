package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hyprwall/internal/policy"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains cache and state locations.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	StateDir string `toml:"state_dir"`
}

// Binaries names the external programs hyprwall drives.
type Binaries struct {
	FFmpeg   string `toml:"ffmpeg"`
	Mpvpaper string `toml:"mpvpaper"`
	Hyprctl  string `toml:"hyprctl"`
	Swww     string `toml:"swww"`
	Pkill    string `toml:"pkill"`
}

// Encoding holds the defaults applied when a command does not override them.
type Encoding struct {
	Codec             string   `toml:"codec"`
	Encoder           string   `toml:"encoder"`
	Profile           string   `toml:"profile"`
	Mode              string   `toml:"mode"`
	VAAPIDevice       string   `toml:"vaapi_device"`
	CUDALibraryDirs   []string `toml:"cuda_library_dirs"`
	StillImageSeconds int      `toml:"still_image_seconds"`
}

// Power holds the hysteresis thresholds and the switch cooldown.
type Power struct {
	StrictEnter     int    `toml:"strict_enter"`
	StrictExit      int    `toml:"strict_exit"`
	EcoEnter        int    `toml:"eco_enter"`
	EcoExit         int    `toml:"eco_exit"`
	CooldownSeconds int    `toml:"cooldown_seconds"`
	SupplyDir       string `toml:"supply_dir"`
}

// Daemon contains the auto-power loop timing.
type Daemon struct {
	ACIntervalSeconds      int  `toml:"ac_interval_seconds"`
	BatteryIntervalSeconds int  `toml:"battery_interval_seconds"`
	DebounceSeconds        int  `toml:"debounce_seconds"`
	WatchUevents           bool `toml:"watch_uevents"`
	WatchSession           bool `toml:"watch_session"`
}

// Runner contains player shutdown timing.
type Runner struct {
	StopTimeoutMS  int  `toml:"stop_timeout_ms"`
	PollIntervalMS int  `toml:"poll_interval_ms"`
	SweepGraceMS   int  `toml:"sweep_grace_ms"`
	StopSwww       bool `toml:"stop_swww"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hyprwall.
//
// Configuration sections by subsystem:
//   - Paths: cache and state directories
//   - Binaries: ffmpeg, mpvpaper, hyprctl and helper tools
//   - Encoding: default codec, encoder, profile, display mode and hardware devices
//   - Power: battery thresholds and switch cooldown
//   - Daemon: auto-power polling intervals and wakeup sources
//   - Runner: player stop timing
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Binaries Binaries `toml:"binaries"`
	Encoding Encoding `toml:"encoding"`
	Power    Power    `toml:"power"`
	Daemon   Daemon   `toml:"daemon"`
	Runner   Runner   `toml:"runner"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hyprwall.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, optimized artifact, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.OptimizedDir(), c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OptimizedDir holds one subdirectory per cache key.
func (c *Config) OptimizedDir() string {
	return filepath.Join(c.Paths.CacheDir, "optimized")
}

// StateFile records the running players.
func (c *Config) StateFile() string {
	return filepath.Join(c.Paths.StateDir, "state.json")
}

// SessionFile records the last wallpaper request.
func (c *Config) SessionFile() string {
	return filepath.Join(c.Paths.StateDir, "session.json")
}

// PlayerLogFile collects mpvpaper output.
func (c *Config) PlayerLogFile() string {
	return filepath.Join(c.Paths.StateDir, "mpvpaper.log")
}

// DaemonLogFile receives a copy of the auto-power daemon log.
func (c *Config) DaemonLogFile() string {
	return filepath.Join(c.Paths.StateDir, "auto.log")
}

// DaemonPIDFile holds the pid of the running auto-power daemon.
func (c *Config) DaemonPIDFile() string {
	return filepath.Join(c.Paths.StateDir, "auto.pid")
}

// LockFile serializes state and session mutations across processes.
func (c *Config) LockFile() string {
	return filepath.Join(c.Paths.StateDir, "state.lock")
}

// DaemonLockFile is held for the lifetime of the auto-power daemon.
func (c *Config) DaemonLockFile() string {
	return filepath.Join(c.Paths.StateDir, "auto.lock")
}

// Hysteresis returns the policy thresholds from the power section.
func (c *Config) Hysteresis() policy.Hysteresis {
	return policy.Hysteresis{
		StrictEnter: c.Power.StrictEnter,
		StrictExit:  c.Power.StrictExit,
		EcoEnter:    c.Power.EcoEnter,
		EcoExit:     c.Power.EcoExit,
	}
}

// Cooldown is the minimum spacing between automatic profile switches.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Power.CooldownSeconds) * time.Second
}

// StopTimeout bounds the graceful phase of a player stop.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Runner.StopTimeoutMS) * time.Millisecond
}

// PollInterval is the liveness poll period while a player stops.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Runner.PollIntervalMS) * time.Millisecond
}

// SweepGrace is the pause between SIGTERM and SIGKILL during a sweep.
func (c *Config) SweepGrace() time.Duration {
	return time.Duration(c.Runner.SweepGraceMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "hyprwall")
	}
	return "~/.cache/hyprwall"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf strings.Builder
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return []byte(buf.String()), nil
}
