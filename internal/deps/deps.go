package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement defines an external program hyprwall relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// Hint tells the user how to install the program.
	Hint string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			if hint := strings.TrimSpace(req.Hint); hint != "" {
				status.Detail += "; " + hint
			}
			results = append(results, status)
			continue
		}
		if info, err := os.Stat(path); err != nil || !isExecutable(info) {
			status.Detail = fmt.Sprintf("%s is not executable", path)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// Binaries names the programs WallpaperRequirements checks.
type Binaries struct {
	FFmpeg   string
	Mpvpaper string
	Hyprctl  string
	Swww     string
}

// WallpaperRequirements lists the programs needed to optimize and play
// wallpapers. swww and nvidia-smi are informational.
func WallpaperRequirements(b Binaries) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: b.FFmpeg, Description: "Transcodes wallpapers into the optimized cache", Hint: "install ffmpeg (e.g. dnf install ffmpeg)"},
		{Name: "mpvpaper", Command: b.Mpvpaper, Description: "Plays the wallpaper on each monitor", Hint: "install mpvpaper"},
		{Name: "hyprctl", Command: b.Hyprctl, Description: "Lists Hyprland monitors", Hint: "run inside a Hyprland session"},
		{Name: "swww", Command: b.Swww, Description: "Competing wallpaper daemon stopped before playback", Optional: true},
		{Name: "nvidia-smi", Command: "nvidia-smi", Description: "Reports NVIDIA GPU state for NVENC", Optional: true},
	}
}

// MissingRequired returns the unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
