// Package optcache keeps one optimized encode per source, target size, and
// encode setting, addressed by a content key.
package optcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"hyprwall/internal/encoding"
	"hyprwall/internal/media"
)

// Fingerprint identifies a source file revision.
type Fingerprint struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	MTime int64  `json:"mtime"`
}

// FingerprintFile resolves path through symlinks and stats it.
func FingerprintFile(path string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat source: %w", err)
	}
	return Fingerprint{Path: resolved, Size: info.Size(), MTime: info.ModTime().Unix()}, nil
}

// Params are the encode inputs that change the artifact. Encoder must be the
// resolved encoder, never auto; Mode is the mode as requested.
type Params struct {
	Width   int
	Height  int
	Profile encoding.Profile
	Mode    media.Mode
	Codec   encoding.Codec
	Encoder encoding.Encoder
}

// Key hashes the fingerprint and params. encoding/json sorts map keys, so
// the payload is canonical.
func Key(fp Fingerprint, p Params) string {
	payload := map[string]any{
		"src": map[string]any{
			"path":  fp.Path,
			"size":  fp.Size,
			"mtime": fp.MTime,
		},
		"w":       p.Width,
		"h":       p.Height,
		"fps":     p.Profile.FPS,
		"codec":   string(p.Codec),
		"quality": p.Profile.Quality,
		"preset":  p.Profile.Preset,
		"enc":     string(p.Encoder),
		"mode":    string(p.Mode),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Only strings and integers above; Marshal cannot fail.
		panic(fmt.Sprintf("optcache: marshal key payload: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CacheKey fingerprints source and hashes it with p.
func CacheKey(source string, p Params) (string, error) {
	fp, err := FingerprintFile(source)
	if err != nil {
		return "", err
	}
	return Key(fp, p), nil
}

// ArtifactPath is where the encode for key lives under dir.
func ArtifactPath(dir, key string, codec encoding.Codec) string {
	return filepath.Join(dir, key, "wallpaper"+codec.Extension())
}
