package session_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/media"
	"hyprwall/internal/session"
)

func TestLoadMissingReturnsErrNoSession(t *testing.T) {
	store := session.Store{Path: filepath.Join(t.TempDir(), "session.json")}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := session.Store{Path: filepath.Join(t.TempDir(), "state", "session.json")}
	switched := time.Unix(1_700_000_123, 500_000_000)
	want := session.Session{
		Source:          "/w/clip.mp4",
		RefMonitor:      "DP-1",
		Mode:            media.ModeCover,
		Codec:           encoding.CodecVP9,
		Encoder:         encoding.EncoderCPU,
		AutoPower:       true,
		LastProfile:     encoding.ProfileEco,
		LastSwitchAt:    switched,
		Cooldown:        90 * time.Second,
		OverrideProfile: encoding.ProfileQuality,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Source != want.Source || got.RefMonitor != want.RefMonitor || got.Mode != want.Mode ||
		got.Codec != want.Codec || got.Encoder != want.Encoder || !got.AutoPower ||
		got.LastProfile != want.LastProfile || got.Cooldown != want.Cooldown ||
		got.OverrideProfile != want.OverrideProfile {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if d := got.LastSwitchAt.Sub(switched); d < -time.Millisecond || d > time.Millisecond {
		t.Fatalf("last_switch_at drifted by %s", d)
	}
}

func TestSaveWritesDocumentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	sess := session.Default()
	sess.Source = "/w/a.mp4"
	sess.RefMonitor = "eDP-1"
	if err := (session.Store{Path: path}).Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"source", "ref_monitor", "monitor", "mode", "codec", "encoder", "auto_power", "last_profile", "last_switch_at", "cooldown_s", "override_profile"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("document missing %q: %s", key, data)
		}
	}
	if doc["override_profile"] != nil {
		t.Fatalf("override_profile should be null, got %v", doc["override_profile"])
	}
	if doc["monitor"] != "eDP-1" || doc["cooldown_s"] != float64(60) {
		t.Fatalf("unexpected document %s", data)
	}
}

func TestDecodeAppliesDefaultsAndMonitorFallback(t *testing.T) {
	sess, err := session.Decode([]byte(`{"source": "/w/a.mp4", "monitor": "HDMI-A-1"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if sess.RefMonitor != "HDMI-A-1" {
		t.Fatalf("ref monitor = %q", sess.RefMonitor)
	}
	if sess.Mode != media.ModeAuto || sess.Codec != encoding.CodecH264 || sess.Encoder != encoding.EncoderAuto {
		t.Fatalf("unexpected defaults %+v", sess)
	}
	if sess.LastProfile != encoding.ProfileBalanced || sess.Cooldown != session.DefaultCooldown {
		t.Fatalf("unexpected defaults %+v", sess)
	}
	if !sess.LastSwitchAt.IsZero() || sess.HasOverride() {
		t.Fatalf("expected no switch time and no override, got %+v", sess)
	}
}

func TestDecodeRejectsUnknownValues(t *testing.T) {
	for _, doc := range []string{
		`{"source": "/a", "codec": "hevc"}`,
		`{"source": "/a", "last_profile": "turbo"}`,
		`{"source": "/a", "override_profile": "fast"}`,
		`{"source": "/a", "mode": "zoom"}`,
		`[]`,
	} {
		if _, err := session.Decode([]byte(doc)); err == nil {
			t.Fatalf("expected error for %s", doc)
		}
	}
}

func TestSaveRequiresSource(t *testing.T) {
	store := session.Store{Path: filepath.Join(t.TempDir(), "session.json")}
	if err := store.Save(session.Default()); err == nil {
		t.Fatal("expected error for empty source")
	}
}
