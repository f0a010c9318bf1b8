package config

const (
	defaultConfigPath             = "~/.config/hyprwall/config.toml"
	defaultFFmpegBinary           = "ffmpeg"
	defaultMpvpaperBinary         = "mpvpaper"
	defaultHyprctlBinary          = "hyprctl"
	defaultSwwwBinary             = "swww"
	defaultPkillBinary            = "pkill"
	defaultCodec                  = "h264"
	defaultEncoder                = "auto"
	defaultProfile                = "balanced"
	defaultMode                   = "auto"
	defaultVAAPIDevice            = "/dev/dri/renderD128"
	defaultStillImageSeconds      = 2
	defaultStrictEnter            = 20
	defaultStrictExit             = 25
	defaultEcoEnter               = 40
	defaultEcoExit                = 45
	defaultCooldownSeconds        = 60
	defaultSupplyDir              = "/sys/class/power_supply"
	defaultACIntervalSeconds      = 90
	defaultBatteryIntervalSeconds = 25
	defaultDebounceSeconds        = 10
	defaultStopTimeoutMS          = 2000
	defaultPollIntervalMS         = 50
	defaultSweepGraceMS           = 100
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

var defaultCUDALibraryDirs = []string{"/usr/lib64", "/usr/lib/x86_64-linux-gnu", "/usr/lib"}

// Default returns a Config populated with repository defaults. Paths are
// left unexpanded until Load normalizes them.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
		},
		Binaries: Binaries{
			FFmpeg:   defaultFFmpegBinary,
			Mpvpaper: defaultMpvpaperBinary,
			Hyprctl:  defaultHyprctlBinary,
			Swww:     defaultSwwwBinary,
			Pkill:    defaultPkillBinary,
		},
		Encoding: Encoding{
			Codec:             defaultCodec,
			Encoder:           defaultEncoder,
			Profile:           defaultProfile,
			Mode:              defaultMode,
			VAAPIDevice:       defaultVAAPIDevice,
			CUDALibraryDirs:   append([]string(nil), defaultCUDALibraryDirs...),
			StillImageSeconds: defaultStillImageSeconds,
		},
		Power: Power{
			StrictEnter:     defaultStrictEnter,
			StrictExit:      defaultStrictExit,
			EcoEnter:        defaultEcoEnter,
			EcoExit:         defaultEcoExit,
			CooldownSeconds: defaultCooldownSeconds,
			SupplyDir:       defaultSupplyDir,
		},
		Daemon: Daemon{
			ACIntervalSeconds:      defaultACIntervalSeconds,
			BatteryIntervalSeconds: defaultBatteryIntervalSeconds,
			DebounceSeconds:        defaultDebounceSeconds,
			WatchUevents:           true,
			WatchSession:           true,
		},
		Runner: Runner{
			StopTimeoutMS:  defaultStopTimeoutMS,
			PollIntervalMS: defaultPollIntervalMS,
			SweepGraceMS:   defaultSweepGraceMS,
			StopSwww:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
