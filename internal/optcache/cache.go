package optcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/fileutil"
	"hyprwall/internal/logging"
	"hyprwall/internal/media"
)

// EncoderPicker resolves a requested encoder for a codec.
type EncoderPicker interface {
	Pick(ctx context.Context, requested encoding.Encoder, codec encoding.Codec) (encoding.Encoder, error)
}

// Transcoder produces job.Output.
type Transcoder interface {
	Transcode(ctx context.Context, job encoding.Job) error
}

// Options configures a Cache.
type Options struct {
	Dir          string
	Picker       EncoderPicker
	Transcoder   Transcoder
	StillSeconds int
	VAAPIDevice  string
	Logger       *slog.Logger
}

// Cache stores optimized artifacts under Dir/<key>/.
type Cache struct {
	dir          string
	picker       EncoderPicker
	transcoder   Transcoder
	stillSeconds int
	vaapiDevice  string
	logger       *slog.Logger
}

// New builds a cache rooted at opts.Dir.
func New(opts Options) *Cache {
	return &Cache{
		dir:          opts.Dir,
		picker:       opts.Picker,
		transcoder:   opts.Transcoder,
		stillSeconds: opts.StillSeconds,
		vaapiDevice:  opts.VAAPIDevice,
		logger:       logging.NewComponentLogger(opts.Logger, "optcache"),
	}
}

// Dir returns the artifact root.
func (c *Cache) Dir() string { return c.dir }

// Request describes one optimization.
type Request struct {
	Source  string
	Width   int
	Height  int
	Profile encoding.ProfileName
	Mode    media.Mode
	Codec   encoding.Codec
	Encoder encoding.Encoder
}

// Result reports where the artifact is and which encoder produced it.
// Chosen is what selection resolved; Used is what ran, which differs for
// still images.
type Result struct {
	Path      string           `json:"path"`
	Key       string           `json:"key"`
	CacheHit  bool             `json:"cache_hit"`
	Requested encoding.Encoder `json:"requested"`
	Chosen    encoding.Encoder `json:"chosen"`
	Used      encoding.Encoder `json:"used"`
}

// EnsureOptimized returns the cached artifact for req, encoding it on a miss.
// A hit never runs the transcoder.
func (c *Cache) EnsureOptimized(ctx context.Context, req Request) (Result, error) {
	profile, err := encoding.LookupProfile(req.Profile)
	if err != nil {
		return Result{}, err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return Result{}, fmt.Errorf("invalid target size %dx%d", req.Width, req.Height)
	}
	requested := req.Encoder
	if requested == "" {
		requested = encoding.EncoderAuto
	}
	mode := req.Mode
	if mode == "" {
		mode = media.ModeAuto
	}

	fp, err := FingerprintFile(req.Source)
	if err != nil {
		return Result{}, err
	}
	chosen, err := c.picker.Pick(ctx, requested, req.Codec)
	if err != nil {
		return Result{}, err
	}
	key := Key(fp, Params{
		Width:   req.Width,
		Height:  req.Height,
		Profile: profile,
		Mode:    mode,
		Codec:   req.Codec,
		Encoder: chosen,
	})
	path := ArtifactPath(c.dir, key, req.Codec)
	job := encoding.Job{
		Source:       fp.Path,
		Output:       path,
		Width:        req.Width,
		Height:       req.Height,
		Profile:      profile,
		Codec:        req.Codec,
		Encoder:      chosen,
		StillImage:   media.IsImage(fp.Path),
		StillSeconds: c.stillSeconds,
		VAAPIDevice:  c.vaapiDevice,
	}
	result := Result{Path: path, Key: key, Requested: requested, Chosen: chosen, Used: job.UsedEncoder()}

	logger := c.logger.With(logging.String(logging.FieldCacheKey, key[:12]))
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		result.CacheHit = true
		logger.Debug("optimized artifact cache hit", logging.String("path", path))
		return result, nil
	}

	logger.Info("optimized artifact cache miss",
		logging.String("source", fp.Path),
		logging.String(logging.FieldProfile, string(profile.Name)),
		logging.String(logging.FieldEncoder, string(result.Used)),
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create cache entry: %w", err)
	}
	if err := c.transcoder.Transcode(ctx, job); err != nil {
		return Result{}, err
	}
	return result, nil
}

// Usage summarizes the artifact tree.
type Usage struct {
	Entries int   `json:"entries"`
	Files   int   `json:"files"`
	Bytes   int64 `json:"bytes"`
}

// Usage walks the artifact root.
func (c *Cache) Usage() (Usage, error) {
	entries, err := c.keyDirs()
	if err != nil {
		return Usage{}, err
	}
	tree, err := fileutil.TreeUsage(c.dir)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Entries: len(entries), Files: tree.Files, Bytes: tree.Bytes}, nil
}

// Clear removes every artifact and reports what was removed.
func (c *Cache) Clear() (Usage, error) {
	usage, err := c.Usage()
	if err != nil {
		return Usage{}, err
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return Usage{}, fmt.Errorf("clear cache: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Usage{}, fmt.Errorf("recreate cache dir: %w", err)
	}
	c.logger.Info("optimized cache cleared",
		logging.Int("entries", usage.Entries),
		logging.Int64("bytes", usage.Bytes),
	)
	return usage, nil
}

// Entry is one cache key directory.
type Entry struct {
	Key     string    `json:"key"`
	Path    string    `json:"path"`
	Bytes   int64     `json:"bytes"`
	ModTime time.Time `json:"modified"`
}

// Entries lists key directories, newest first.
func (c *Cache) Entries() ([]Entry, error) {
	dirs, err := c.keyDirs()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(dirs))
	for _, d := range dirs {
		dir := filepath.Join(c.dir, d.Name())
		usage, err := fileutil.TreeUsage(dir)
		if err != nil {
			return nil, err
		}
		entry := Entry{Key: d.Name(), Path: dir, Bytes: usage.Bytes}
		files, _ := os.ReadDir(dir)
		for _, f := range files {
			info, err := f.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if info.ModTime().After(entry.ModTime) {
				entry.ModTime = info.ModTime()
				entry.Path = filepath.Join(dir, f.Name())
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Key < out[j].Key
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

func (c *Cache) keyDirs() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	dirs := entries[:0]
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	return dirs, nil
}
