package encoding

import (
	"fmt"
	"strings"
)

// ProfileName identifies an entry of the profile catalog.
type ProfileName string

const (
	ProfileEcoStrict ProfileName = "eco_strict"
	ProfileEco       ProfileName = "eco"
	ProfileBalanced  ProfileName = "balanced"
	ProfileQuality   ProfileName = "quality"

	// ProfileOff plays the source as-is. It is not part of the catalog.
	ProfileOff ProfileName = "off"
)

// Profile is an immutable encode setting: frame rate, quantizer and preset.
// Lower Quality means higher fidelity.
type Profile struct {
	Name    ProfileName `json:"name"`
	FPS     int         `json:"fps"`
	Quality int         `json:"quality"`
	Preset  string      `json:"preset"`
}

// Profiles returns the catalog ordered from most to least frugal.
func Profiles() []Profile {
	return []Profile{
		{Name: ProfileEcoStrict, FPS: 18, Quality: 30, Preset: "veryfast"},
		{Name: ProfileEco, FPS: 24, Quality: 28, Preset: "veryfast"},
		{Name: ProfileBalanced, FPS: 30, Quality: 24, Preset: "veryfast"},
		{Name: ProfileQuality, FPS: 30, Quality: 20, Preset: "fast"},
	}
}

// LookupProfile resolves a catalog entry by name.
func LookupProfile(name ProfileName) (Profile, error) {
	want := ProfileName(strings.ToLower(strings.TrimSpace(string(name))))
	for _, p := range Profiles() {
		if p.Name == want {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown profile %q (want eco_strict, eco, balanced or quality)", name)
}

// ParseProfileName accepts a catalog name or "off".
func ParseProfileName(value string) (ProfileName, error) {
	name := ProfileName(strings.ToLower(strings.TrimSpace(value)))
	if name == ProfileOff {
		return name, nil
	}
	if _, err := LookupProfile(name); err != nil {
		return "", err
	}
	return name, nil
}
