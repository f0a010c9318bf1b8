package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hyprwall/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Runner and daemon timings are shortened so stop and loop tests finish
// quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Power.SupplyDir = filepath.Join(base, "power_supply")
	cfgVal.Runner.StopTimeoutMS = 500
	cfgVal.Runner.PollIntervalMS = 20
	cfgVal.Runner.SweepGraceMS = 20
	cfgVal.Runner.StopSwww = false
	cfgVal.Daemon.WatchUevents = false
	cfgVal.Daemon.WatchSession = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithEncoder overrides the default codec and encoder.
func WithEncoder(codec, encoder string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Codec = codec
		b.cfg.Encoding.Encoder = encoder
	}
}

// WithBattery writes a fake power-supply tree: an adapter with the given
// online state and a battery at percent (omitted when negative).
func WithBattery(onAC bool, percent int) ConfigOption {
	return func(b *configBuilder) {
		WritePowerSupply(b.t, b.cfg.Power.SupplyDir, onAC, percent)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default hyprwall external
// binaries are stubbed with exit-0 scripts. Use WithScript for stubs that
// need behaviour.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "mpvpaper", "hyprctl"}
		}
		binDir := b.binDir()
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}
		prependPath(b.t, binDir)
	}
}

// WithScript installs a stub binary with the given shell body and points the
// matching config binary at it.
func WithScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		binDir := b.binDir()
		path := WriteScript(b.t, binDir, name, body)
		switch name {
		case "ffmpeg":
			b.cfg.Binaries.FFmpeg = path
		case "mpvpaper":
			b.cfg.Binaries.Mpvpaper = path
		case "hyprctl":
			b.cfg.Binaries.Hyprctl = path
		case "swww":
			b.cfg.Binaries.Swww = path
		case "pkill":
			b.cfg.Binaries.Pkill = path
		}
		prependPath(b.t, binDir)
	}
}

func (b *configBuilder) binDir() string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return binDir
}

func prependPath(t testing.TB, dir string) {
	oldPath := os.Getenv("PATH")
	if parts := filepath.SplitList(oldPath); len(parts) > 0 && parts[0] == dir {
		return
	}
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
