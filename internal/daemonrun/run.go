package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"hyprwall/internal/api"
	"hyprwall/internal/config"
	"hyprwall/internal/daemon"
	"hyprwall/internal/deps"
	"hyprwall/internal/logging"
	"hyprwall/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Once        bool
	// Service replaces the api.Service built from cfg. Tests use it to
	// inject display and process fakes.
	Service daemon.Controller
}

// Run starts the auto-power loop and blocks until SIGINT/SIGTERM or, with
// Once, until a single evaluation completes.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New(logging.Options{
		Level:       orDefault(opts.LogLevel, cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	fileHandler, err := logging.NewHandler(logging.Options{
		Level:       orDefault(opts.LogLevel, cfg.Logging.Level),
		Format:      "json",
		OutputPaths: []string{cfg.DaemonLogFile()},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to open daemon log %s: %v\n", cfg.DaemonLogFile(), err)
	} else {
		logger = logging.TeeLogger(logger, fileHandler)
	}

	logDependencySnapshot(logger, cfg)

	ctrl := opts.Service
	if ctrl == nil {
		svc, err := api.New(cfg, logger, api.Options{})
		if err != nil {
			return fmt.Errorf("create service: %w", err)
		}
		ctrl = svc
	}

	d, err := daemon.New(cfg, ctrl, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if !opts.Once {
		// The pid file belongs to the lock holder; never clobber it.
		running, err := preflight.DaemonRunning(cfg.DaemonLockFile())
		if err != nil {
			return err
		}
		if running {
			return daemon.ErrAlreadyRunning
		}
		pidPath := cfg.DaemonPIDFile()
		if err := writePIDFile(pidPath); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(pidPath)
		logger.Info("hyprwall auto daemon started",
			logging.String(logging.FieldEventType, "daemon_started"),
			logging.Int("pid", os.Getpid()),
			logging.String("log_file", cfg.DaemonLogFile()),
		)
	}

	err = d.Run(signalCtx, opts.Once)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		if !opts.Once {
			logger.Info("hyprwall auto daemon shutting down", logging.String(logging.FieldEventType, "daemon_stopped"))
		}
		return nil
	default:
		return err
	}
}

// ReadPID returns the pid recorded by a running daemon, or 0 when none is
// recorded.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(cfg.DaemonPIDFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []slog.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(strings.ToLower(status.Name)+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		for _, m := range missing {
			logging.WarnWithContext(logger, "required program missing", "dependency_missing",
				logging.String("program", m.Name),
				logging.String(logging.FieldErrorHint, m.Detail),
				logging.String(logging.FieldImpact, "profile switches will fail until it is installed"),
			)
		}
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
