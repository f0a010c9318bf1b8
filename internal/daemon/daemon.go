package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"hyprwall/internal/api"
	"hyprwall/internal/config"
	"hyprwall/internal/encoding"
	"hyprwall/internal/logging"
	"hyprwall/internal/policy"
	"hyprwall/internal/power"
	"hyprwall/internal/session"
)

var (
	// ErrAlreadyRunning reports that another daemon holds auto.lock.
	ErrAlreadyRunning = errors.New("another hyprwall auto daemon is already running")
	// ErrAutoPowerDisabled reports that the session does not request
	// power-driven profile switching.
	ErrAutoPowerDisabled = errors.New("auto-power is disabled for the current session; run hyprwall auto on or set with --auto-power")
)

// Controller is the part of api.Service the loop drives.
type Controller interface {
	Evaluate() (session.Session, power.Status, policy.Decision, error)
	ApplyProfile(ctx context.Context, target encoding.ProfileName, opts api.ApplyOptions) (api.ApplyResult, error)
}

// Daemon re-evaluates the power policy and applies profile switches.
type Daemon struct {
	ctrl            Controller
	logger          *slog.Logger
	lockPath        string
	lock            *flock.Flock
	sessionPath     string
	acInterval      time.Duration
	batteryInterval time.Duration
	debounce        time.Duration
	watchUevents    bool
	watchSession    bool

	sleep func(ctx context.Context, d time.Duration, wake ...<-chan struct{}) error
}

// New builds a daemon from the [daemon] config section.
func New(cfg *config.Config, ctrl Controller, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || ctrl == nil {
		return nil, errors.New("daemon requires config and controller")
	}
	return &Daemon{
		ctrl:            ctrl,
		logger:          logging.NewComponentLogger(logger, "daemon"),
		lockPath:        cfg.DaemonLockFile(),
		lock:            flock.New(cfg.DaemonLockFile()),
		sessionPath:     cfg.SessionFile(),
		acInterval:      time.Duration(cfg.Daemon.ACIntervalSeconds) * time.Second,
		batteryInterval: time.Duration(cfg.Daemon.BatteryIntervalSeconds) * time.Second,
		debounce:        time.Duration(cfg.Daemon.DebounceSeconds) * time.Second,
		watchUevents:    cfg.Daemon.WatchUevents,
		watchSession:    cfg.Daemon.WatchSession,
		sleep:           sleepOrWake,
	}, nil
}

// Run holds the daemon lock and loops until ctx is cancelled. With once it
// performs exactly one evaluation and returns its error.
func (d *Daemon) Run(ctx context.Context, once bool) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err), logging.String("lock", d.lockPath))
		}
	}()

	logger := d.logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

	sess, _, _, err := d.ctrl.Evaluate()
	if err != nil {
		return err
	}
	if !sess.AutoPower {
		return ErrAutoPowerDisabled
	}

	if once {
		_, _, err := d.tick(ctx, logger)
		return err
	}

	var uevents *power.Watcher
	if d.watchUevents {
		uevents = power.NewWatcher(logger)
		if err := uevents.Start(ctx); err != nil {
			logging.WarnWithContext(logger, "power watcher failed to start", "power_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "profile switches wait for the next poll"),
			)
		}
		defer uevents.Stop()
	}
	var sessions *sessionWatcher
	if d.watchSession {
		if w, err := newSessionWatcher(d.sessionPath, logger); err != nil {
			logging.WarnWithContext(logger, "session watcher unavailable", "session_watch_failed", logging.Error(err))
		} else if err := w.Start(ctx); err != nil {
			logging.WarnWithContext(logger, "session watcher unavailable", "session_watch_failed", logging.Error(err))
		} else {
			sessions = w
			defer sessions.Stop()
		}
	}

	logger.Info("auto-power daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Duration("ac_interval", d.acInterval),
		logging.Duration("battery_interval", d.batteryInterval),
		logging.Bool("uevents", uevents.Running()),
		logging.Bool("session_watch", sessions != nil),
	)

	for {
		switched, status, err := d.tick(ctx, logger)
		switch {
		case errors.Is(err, ErrAutoPowerDisabled):
			logger.Info("auto-power disabled; daemon exiting", logging.String(logging.FieldEventType, "daemon_disabled"))
			return nil
		case errors.Is(err, session.ErrNoSession):
			return err
		case ctx.Err() != nil:
			logger.Info("auto-power daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
			return nil
		case err != nil:
			logging.WarnWithContext(logger, "profile evaluation failed", "daemon_tick_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the player log and hyprwall status"),
				logging.String(logging.FieldImpact, "the current profile stays until the next attempt"),
			)
		}

		if switched && d.debounce > 0 {
			// Our own session save fires the watchers; let it settle.
			if err := d.sleep(ctx, d.debounce); err != nil {
				logger.Info("auto-power daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
				return nil
			}
			drain(uevents.Events())
			drain(sessions.Events())
		}
		if err := d.sleep(ctx, d.interval(status), uevents.Events(), sessions.Events()); err != nil {
			logger.Info("auto-power daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
			return nil
		}
	}
}

// tick runs one evaluation and applies the target profile when the policy
// allows a switch.
func (d *Daemon) tick(ctx context.Context, logger *slog.Logger) (bool, power.Status, error) {
	sess, status, decision, err := d.ctrl.Evaluate()
	if err != nil {
		return false, status, err
	}
	if !sess.AutoPower {
		return false, status, ErrAutoPowerDisabled
	}
	logger.Debug("policy evaluated",
		logging.String("power", status.Source()),
		logging.String(logging.FieldProfile, string(decision.Target)),
		logging.String("last", string(decision.Last)),
		logging.String("reason", string(decision.Reason)),
		logging.Duration("cooldown_remaining", decision.CooldownRemaining),
	)
	if !decision.Switch {
		return false, status, nil
	}

	result, err := d.ctrl.ApplyProfile(ctx, decision.Target, api.ApplyOptions{})
	if err != nil {
		return false, status, fmt.Errorf("apply %s: %w", decision.Target, err)
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "profile_switched"),
		logging.String(logging.FieldProfile, string(result.Profile)),
		logging.String("previous", string(result.Previous)),
		logging.String("power", status.Source()),
	}
	if status.Percent != nil {
		attrs = append(attrs, logging.Int("percent", *status.Percent))
	}
	logger.Info("power profile switched", logging.Args(attrs...)...)
	return true, status, nil
}

func (d *Daemon) interval(status power.Status) time.Duration {
	if status.OnAC != nil && !*status.OnAC {
		return d.batteryInterval
	}
	return d.acInterval
}

// sleepOrWake waits for d, returning early without error when any wake
// channel fires. A cancelled ctx returns its error.
func sleepOrWake(ctx context.Context, d time.Duration, wake ...<-chan struct{}) error {
	var a, b <-chan struct{}
	if len(wake) > 0 {
		a = wake[0]
	}
	if len(wake) > 1 {
		b = wake[1]
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-a:
	case <-b:
	}
	return nil
}

func drain(ch <-chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
	}
}
