package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"hyprwall/internal/config"
	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
	"hyprwall/internal/logging"
	"hyprwall/internal/optcache"
	"hyprwall/internal/power"
	"hyprwall/internal/runner"
	"hyprwall/internal/session"
)

var (
	// ErrAutoPowerWithoutProfile rejects auto-power combined with profile off.
	ErrAutoPowerWithoutProfile = errors.New("auto-power requires an optimization profile; profile off plays the source directly")
	// ErrLockBusy reports that another invocation holds the state lock.
	ErrLockBusy = errors.New("another hyprwall command is changing the wallpaper; try again")
	// ErrSessionChanged reports that the session was replaced while a
	// profile was being prepared.
	ErrSessionChanged = errors.New("session changed while applying profile")
)

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// Displays lists compositor outputs.
type Displays interface {
	Monitors(ctx context.Context) ([]hypr.Monitor, error)
	Resolution(ctx context.Context, name string) (int, int, error)
}

// PowerSource samples AC and battery state.
type PowerSource interface {
	Read() power.Status
}

// Options replaces collaborators normally built from config. Zero values use
// the real implementations.
type Options struct {
	Displays     Displays
	Power        PowerSource
	Picker       optcache.EncoderPicker
	Transcoder   optcache.Transcoder
	ProcessTable runner.ProcessTable
	LockTimeout  time.Duration
	Now          func() time.Time
}

// Service implements the wallpaper operations.
type Service struct {
	cfg         *config.Config
	logger      *slog.Logger
	displays    Displays
	power       PowerSource
	selector    *encoding.Selector
	cache       *optcache.Cache
	runner      *runner.Runner
	sessions    session.Store
	lock        *flock.Flock
	lockTimeout time.Duration
	now         func() time.Time
}

// New builds a service from cfg. The cache and state directories are created
// if missing.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("api service requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	displays := opts.Displays
	if displays == nil {
		displays = hypr.NewClient(cfg.Binaries.Hyprctl)
	}
	powerSource := opts.Power
	if powerSource == nil {
		powerSource = power.NewReader(cfg.Power.SupplyDir)
	}
	selector := encoding.NewSelector(encoding.SelectorOptions{
		FFmpeg:          cfg.Binaries.FFmpeg,
		VAAPIDevice:     cfg.Encoding.VAAPIDevice,
		CUDALibraryDirs: cfg.Encoding.CUDALibraryDirs,
		Logger:          logger,
	})
	var picker optcache.EncoderPicker = selector
	if opts.Picker != nil {
		picker = opts.Picker
	}
	var transcoder optcache.Transcoder = encoding.NewFFmpegTranscoder(cfg.Binaries.FFmpeg, nil, logger)
	if opts.Transcoder != nil {
		transcoder = opts.Transcoder
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lockTimeout := opts.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	return &Service{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "api"),
		displays: displays,
		power:    powerSource,
		selector: selector,
		cache: optcache.New(optcache.Options{
			Dir:          cfg.OptimizedDir(),
			Picker:       picker,
			Transcoder:   transcoder,
			StillSeconds: cfg.Encoding.StillImageSeconds,
			VAAPIDevice:  cfg.Encoding.VAAPIDevice,
			Logger:       logger,
		}),
		runner: runner.New(runner.Options{
			Binary:       cfg.Binaries.Mpvpaper,
			StateFile:    cfg.StateFile(),
			LogFile:      cfg.PlayerLogFile(),
			Displays:     displays,
			Table:        opts.ProcessTable,
			StopTimeout:  cfg.StopTimeout(),
			PollInterval: cfg.PollInterval(),
			SweepGrace:   cfg.SweepGrace(),
			StopSwww:     cfg.Runner.StopSwww,
			SwwwBinary:   cfg.Binaries.Swww,
			PkillBinary:  cfg.Binaries.Pkill,
			Logger:       logger,
		}),
		sessions:    session.Store{Path: cfg.SessionFile()},
		lock:        flock.New(cfg.LockFile()),
		lockTimeout: lockTimeout,
		now:         now,
	}, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config { return s.cfg }

// Selector exposes the encoder selector for capability reporting.
func (s *Service) Selector() *encoding.Selector { return s.selector }

// withLock runs fn while holding the state lock.
func (s *Service) withLock(ctx context.Context, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return ErrLockBusy
		}
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !ok {
		return ErrLockBusy
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logging.WarnWithContext(s.logger, "failed to release state lock", "state_lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+s.cfg.LockFile()+" if no hyprwall process is running"),
				logging.String(logging.FieldImpact, "other commands may wait until this process exits"),
			)
		}
	}()
	return fn()
}

// restart stops every recorded player and starts plans. Survivors abort the
// start so two players never share a monitor.
func (s *Service) restart(ctx context.Context, plans []MonitorPlan, extraArgs []string) (runner.State, error) {
	if _, err := s.runner.Stop(ctx); err != nil {
		return runner.State{}, fmt.Errorf("stop existing players: %w", err)
	}
	entries := make([]runner.Entry, 0, len(plans))
	for _, plan := range plans {
		entries = append(entries, runner.Entry{Monitor: plan.Monitor, File: plan.File, Mode: plan.Mode})
	}
	return s.runner.StartMany(ctx, entries, extraArgs)
}

// Stop stops every player, or only monitor when it is non-empty.
func (s *Service) Stop(ctx context.Context, monitor string) (runner.StopReport, error) {
	var report runner.StopReport
	err := s.withLock(ctx, func() error {
		var err error
		if monitor == "" {
			report, err = s.runner.Stop(ctx)
		} else {
			report, err = s.runner.StopMonitor(ctx, monitor)
		}
		return err
	})
	if err == nil && report.AnyStopped() {
		s.logger.Info("wallpaper stopped",
			logging.String(logging.FieldEventType, "wallpaper_stopped"),
			logging.Int("monitors", len(report.Monitors)),
		)
	}
	return report, err
}
