package runner

import (
	"fmt"
	"strings"

	"hyprwall/internal/media"
)

var baseMpvOptions = []string{"--no-audio", "--no-border", "--really-quiet", "--hwdec=auto-safe"}

// MpvOptions builds the option string passed to mpvpaper -o. Width and height
// may be zero when the monitor size is unknown; cover then degrades to a
// plain stretch.
func MpvOptions(file string, mode media.Mode, width, height int) string {
	opts := append([]string(nil), baseMpvOptions...)

	switch mode.Effective(file) {
	case media.ModeFit:
		opts = append(opts, "--keepaspect=yes")
	case media.ModeStretch:
		opts = append(opts, "--keepaspect=no")
	case media.ModeCover:
		if width > 0 && height > 0 {
			opts = append(opts, fmt.Sprintf("--vf=scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", width, height, width, height))
		} else {
			opts = append(opts, "--keepaspect=no")
		}
	}

	if media.IsImage(file) {
		opts = append(opts, "--image-display-duration=inf")
	} else {
		opts = append(opts, "--loop-file=inf")
	}
	return strings.Join(opts, " ")
}
