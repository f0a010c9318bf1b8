package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBinaries()
	if err := c.normalizeEncoding(); err != nil {
		return err
	}
	if err := c.normalizePower(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = filepath.Join(c.Paths.CacheDir, "state")
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBinaries() {
	c.Binaries.FFmpeg = orDefault(c.Binaries.FFmpeg, defaultFFmpegBinary)
	c.Binaries.Mpvpaper = orDefault(c.Binaries.Mpvpaper, defaultMpvpaperBinary)
	c.Binaries.Hyprctl = orDefault(c.Binaries.Hyprctl, defaultHyprctlBinary)
	c.Binaries.Swww = orDefault(c.Binaries.Swww, defaultSwwwBinary)
	c.Binaries.Pkill = orDefault(c.Binaries.Pkill, defaultPkillBinary)
}

func (c *Config) normalizeEncoding() error {
	c.Encoding.Codec = strings.ToLower(orDefault(c.Encoding.Codec, defaultCodec))
	c.Encoding.Encoder = strings.ToLower(orDefault(c.Encoding.Encoder, defaultEncoder))
	c.Encoding.Profile = strings.ToLower(orDefault(c.Encoding.Profile, defaultProfile))
	c.Encoding.Mode = strings.ToLower(orDefault(c.Encoding.Mode, defaultMode))
	c.Encoding.VAAPIDevice = orDefault(c.Encoding.VAAPIDevice, defaultVAAPIDevice)

	dirs := make([]string, 0, len(c.Encoding.CUDALibraryDirs))
	seen := make(map[string]struct{}, len(c.Encoding.CUDALibraryDirs))
	for _, dir := range c.Encoding.CUDALibraryDirs {
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("encoding.cuda_library_dirs: %w", err)
		}
		if expanded == "" {
			continue
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	if len(dirs) == 0 {
		dirs = append(dirs, defaultCUDALibraryDirs...)
	}
	c.Encoding.CUDALibraryDirs = dirs
	if c.Encoding.StillImageSeconds <= 0 {
		c.Encoding.StillImageSeconds = defaultStillImageSeconds
	}
	return nil
}

func (c *Config) normalizePower() error {
	var err error
	if strings.TrimSpace(c.Power.SupplyDir) == "" {
		c.Power.SupplyDir = defaultSupplyDir
	}
	if c.Power.SupplyDir, err = expandPath(strings.TrimSpace(c.Power.SupplyDir)); err != nil {
		return fmt.Errorf("power.supply_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
