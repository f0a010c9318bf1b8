// Package media classifies wallpaper sources and resolves user-supplied paths
// into a single playable file.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// Kind distinguishes still images from videos.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var (
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".bmp": {}, ".gif": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".mkv": {}, ".webm": {}}
)

var (
	// ErrUnsupported marks a file whose extension is not a known image or video.
	ErrUnsupported = errors.New("unsupported file format")
	// ErrNoMedia marks a directory without any supported file.
	ErrNoMedia = errors.New("no supported wallpaper files found in directory")
)

// IsImage reports whether path has an image extension.
func IsImage(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsVideo reports whether path has a video extension.
func IsVideo(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// KindOf classifies path by extension.
func KindOf(path string) (Kind, bool) {
	switch {
	case IsImage(path):
		return KindImage, true
	case IsVideo(path):
		return KindVideo, true
	}
	return "", false
}

// Resolve validates a wallpaper source. A directory resolves to its most
// recently modified supported file. The result is an absolute path.
func Resolve(path string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: file or directory does not exist", path)
		}
		return "", fmt.Errorf("inspect %s: %w", path, err)
	}
	if info.IsDir() {
		newest, err := newestIn(expanded)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		expanded = newest
		if info, err = os.Stat(expanded); err != nil {
			return "", fmt.Errorf("inspect %s: %w", expanded, err)
		}
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: path is not a file", expanded)
	}
	if _, ok := KindOf(expanded); !ok {
		return "", fmt.Errorf("%s: %w", expanded, ErrUnsupported)
	}
	if err := unix.Access(expanded, unix.R_OK); err != nil {
		return "", fmt.Errorf("%s: file is not readable: %w", expanded, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %s: %w", expanded, err)
	}
	return abs, nil
}

func newestIn(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory: %w", err)
	}
	var (
		best     string
		bestTime int64
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := KindOf(entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mtime := info.ModTime().UnixNano(); best == "" || mtime > bestTime {
			best = filepath.Join(dir, entry.Name())
			bestTime = mtime
		}
	}
	if best == "" {
		return "", ErrNoMedia
	}
	return best, nil
}

// Item is one library entry.
type Item struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	Size int64  `json:"size_bytes"`
}

// Scan lists supported files under dir sorted by path. Unreadable
// subdirectories are skipped.
func Scan(dir string, recursive bool) ([]Item, error) {
	root, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("inspect library %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var items []Item
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		kind, ok := KindOf(path)
		if !ok || !d.Type().IsRegular() {
			return nil
		}
		item := Item{Path: path, Kind: kind}
		if fi, err := d.Info(); err == nil {
			item.Size = fi.Size()
		}
		items = append(items, item)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan library %s: %w", dir, walkErr)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

func expandHome(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is required")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return trimmed, nil
}
