// Package session persists the last wallpaper request so the auto-power
// daemon and later invocations can re-apply it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/fileutil"
	"hyprwall/internal/media"
)

// ErrNoSession reports that no wallpaper has been set yet.
var ErrNoSession = errors.New("no wallpaper session recorded; run hyprwall set first")

// DefaultCooldown applies when a session does not carry one.
const DefaultCooldown = 60 * time.Second

// Session is the persisted wallpaper request.
type Session struct {
	Source       string
	RefMonitor   string
	Mode         media.Mode
	Codec        encoding.Codec
	Encoder      encoding.Encoder
	AutoPower    bool
	LastProfile  encoding.ProfileName
	LastSwitchAt time.Time
	Cooldown     time.Duration
	// OverrideProfile pins the profile; empty lets the policy decide.
	OverrideProfile encoding.ProfileName
}

// Default returns a session with every optional field at its default.
func Default() Session {
	return Session{
		Mode:        media.ModeAuto,
		Codec:       encoding.CodecH264,
		Encoder:     encoding.EncoderAuto,
		LastProfile: encoding.ProfileBalanced,
		Cooldown:    DefaultCooldown,
	}
}

// HasOverride reports whether a manual profile is pinned.
func (s Session) HasOverride() bool { return s.OverrideProfile != "" }

type wireSession struct {
	Source          string  `json:"source"`
	RefMonitor      string  `json:"ref_monitor"`
	Monitor         string  `json:"monitor"`
	Mode            string  `json:"mode"`
	Codec           string  `json:"codec"`
	Encoder         string  `json:"encoder"`
	AutoPower       bool    `json:"auto_power"`
	LastProfile     string  `json:"last_profile"`
	LastSwitchAt    float64 `json:"last_switch_at"`
	CooldownS       *int    `json:"cooldown_s"`
	OverrideProfile *string `json:"override_profile"`
}

// Decode parses a session document, filling defaults for missing fields.
func Decode(data []byte) (Session, error) {
	var w wireSession
	if err := json.Unmarshal(data, &w); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	s := Default()
	s.Source = w.Source
	s.RefMonitor = w.RefMonitor
	if s.RefMonitor == "" {
		s.RefMonitor = w.Monitor
	}
	s.AutoPower = w.AutoPower
	s.LastSwitchAt = fromUnixSeconds(w.LastSwitchAt)

	var err error
	if strings.TrimSpace(w.Mode) != "" {
		if s.Mode, err = media.ParseMode(w.Mode); err != nil {
			return Session{}, fmt.Errorf("decode session: %w", err)
		}
	}
	if strings.TrimSpace(w.Codec) != "" {
		if s.Codec, err = encoding.ParseCodec(w.Codec); err != nil {
			return Session{}, fmt.Errorf("decode session: %w", err)
		}
	}
	if strings.TrimSpace(w.Encoder) != "" {
		if s.Encoder, err = encoding.ParseEncoder(w.Encoder); err != nil {
			return Session{}, fmt.Errorf("decode session: %w", err)
		}
	}
	if strings.TrimSpace(w.LastProfile) != "" {
		if s.LastProfile, err = encoding.ParseProfileName(w.LastProfile); err != nil {
			return Session{}, fmt.Errorf("decode session: %w", err)
		}
	}
	if w.CooldownS != nil && *w.CooldownS >= 0 {
		s.Cooldown = time.Duration(*w.CooldownS) * time.Second
	}
	if w.OverrideProfile != nil && strings.TrimSpace(*w.OverrideProfile) != "" {
		if s.OverrideProfile, err = encoding.ParseProfileName(*w.OverrideProfile); err != nil {
			return Session{}, fmt.Errorf("decode session: override: %w", err)
		}
	}
	return s, nil
}

func (s Session) wire() wireSession {
	cooldown := int(s.Cooldown / time.Second)
	w := wireSession{
		Source:       s.Source,
		RefMonitor:   s.RefMonitor,
		Monitor:      s.RefMonitor,
		Mode:         string(s.Mode),
		Codec:        string(s.Codec),
		Encoder:      string(s.Encoder),
		AutoPower:    s.AutoPower,
		LastProfile:  string(s.LastProfile),
		LastSwitchAt: unixSeconds(s.LastSwitchAt),
		CooldownS:    &cooldown,
	}
	if s.OverrideProfile != "" {
		override := string(s.OverrideProfile)
		w.OverrideProfile = &override
	}
	return w
}

// MarshalJSON renders the on-disk document.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// Store reads and writes the session file.
type Store struct {
	Path string
}

// Load returns ErrNoSession when the file does not exist.
func (s Store) Load() (Session, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return Decode(data)
}

// Save replaces the session file atomically.
func (s Store) Save(sess Session) error {
	if strings.TrimSpace(sess.Source) == "" {
		return errors.New("save session: source is required")
	}
	return fileutil.WriteJSONAtomic(s.Path, sess.wire())
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(v float64) time.Time {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
