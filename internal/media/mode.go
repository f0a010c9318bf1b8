package media

import (
	"fmt"
	"strings"
)

// Mode controls how a wallpaper is fitted to a monitor.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeFit     Mode = "fit"
	ModeCover   Mode = "cover"
	ModeStretch Mode = "stretch"
)

// ParseMode validates a display mode name.
func ParseMode(value string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(value))); m {
	case ModeAuto, ModeFit, ModeCover, ModeStretch:
		return m, nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown mode %q (want auto, fit, cover or stretch)", value)
}

// Effective resolves auto: images cover the monitor, videos fit inside it.
func (m Mode) Effective(path string) Mode {
	if m != ModeAuto && m != "" {
		return m
	}
	if IsImage(path) {
		return ModeCover
	}
	return ModeFit
}
