package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"hyprwall/internal/config"
	"hyprwall/internal/deps"
	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
	"hyprwall/internal/power"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs named in the config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.WallpaperRequirements(deps.Binaries{
		FFmpeg:   cfg.Binaries.FFmpeg,
		Mpvpaper: cfg.Binaries.Mpvpaper,
		Hyprctl:  cfg.Binaries.Hyprctl,
		Swww:     cfg.Binaries.Swww,
	}))
}

// CheckMonitors verifies that hyprctl answers with at least one output.
func CheckMonitors(ctx context.Context, lister MonitorLister) Result {
	const name = "Hyprland monitors"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	monitors, err := lister.Monitors(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(monitors) == 0 {
		return Result{Name: name, Detail: hypr.ErrNoMonitors.Error()}
	}
	names := make([]string, 0, len(monitors))
	for _, m := range monitors {
		names = append(names, fmt.Sprintf("%s %dx%d", m.Name, m.Width, m.Height))
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(names, ", ")}
}

// CheckPowerSupply reports whether AC or battery state is visible. An
// invisible supply only disables auto-power decisions, so the check passes
// with a note.
func CheckPowerSupply(root string) Result {
	const name = "Power supply"

	status := power.NewReader(root).Read()
	if !status.Known() {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("nothing readable under %s; auto-power keeps the last profile", root)}
	}
	detail := "source " + status.Source()
	if status.Percent != nil {
		detail += fmt.Sprintf(", battery %d%%", *status.Percent)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckEncoders probes hardware encoders and verifies that the configured
// codec and encoder can be satisfied on this host.
func CheckEncoders(ctx context.Context, prober CapabilityProber, codec encoding.Codec, requested encoding.Encoder) Result {
	const name = "Encoders"

	caps := prober.Capabilities(ctx)
	detail := fmt.Sprintf("nvenc %s, av1 vaapi %s", yesNo(caps.NVENC), yesNo(caps.AV1VAAPI))

	if err := encoding.CheckRequested(requested, codec); err != nil {
		return Result{Name: name, Detail: detail + "; " + err.Error()}
	}
	needsVAAPI := codec == encoding.CodecAV1
	if needsVAAPI && !caps.AV1VAAPI {
		return Result{Name: name, Detail: fmt.Sprintf("%s; %v: codec %s needs av1_vaapi", detail, encoding.ErrHardwareUnavailable, codec)}
	}
	if requested == encoding.EncoderNVENC && !caps.NVENC {
		return Result{Name: name, Detail: detail + "; nvenc requested but not usable"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
