package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"hyprwall/internal/config"
	"hyprwall/internal/daemonrun"
	"hyprwall/internal/preflight"
)

// ErrDaemonNotRunning indicates that no daemon holds auto.lock.
var ErrDaemonNotRunning = errors.New("auto daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	Verbose    bool
}

// StartState describes what EnsureStarted did.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID    int
	Forced bool
}

const pollInterval = 50 * time.Millisecond

// Launch starts a detached `hyprwall auto` process in its own session.
func Launch(executablePath string, opts LaunchOptions) (int, error) {
	if strings.TrimSpace(executablePath) == "" {
		return 0, fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"auto"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if opts.Verbose {
		args = append(args, "--verbose")
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	proc := exec.Command(executablePath, args...)
	proc.Stdin = devNull
	proc.Stdout = devNull
	proc.Stderr = devNull
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	pid := proc.Process.Pid
	// Reap the child if it exits while we still run, so it never lingers
	// as a zombie that looks alive to the liveness probe.
	go func() { _ = proc.Wait() }()
	return pid, nil
}

// EnsureStarted launches the daemon unless one already holds auto.lock and
// waits until the new process takes the lock.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	running, err := preflight.DaemonRunning(cfg.DaemonLockFile())
	if err != nil {
		return StartResult{}, err
	}
	if running {
		pid, _ := daemonrun.ReadPID(cfg)
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}

	pid, err := Launch(executablePath, opts)
	if err != nil {
		return StartResult{}, err
	}
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		running, err := preflight.DaemonRunning(cfg.DaemonLockFile())
		if err != nil {
			return StartResult{}, err
		}
		if running {
			return StartResult{State: StartStateStarted, PID: pid}, nil
		}
		if !processAlive(pid) {
			return StartResult{}, fmt.Errorf("daemon exited during startup; see %s", cfg.DaemonLogFile())
		}
		time.Sleep(pollInterval)
	}
	return StartResult{}, fmt.Errorf("daemon did not take %s within %s", cfg.DaemonLockFile(), waitTimeout)
}

// Stop sends SIGTERM to the daemon recorded in the pid file and escalates
// to SIGKILL when it outlives gracePeriod.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pid, err := daemonrun.ReadPID(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if pid <= 0 {
		running, lockErr := preflight.DaemonRunning(cfg.DaemonLockFile())
		if lockErr != nil {
			return StopResult{}, lockErr
		}
		if running {
			return StopResult{}, fmt.Errorf("a daemon holds %s but %s is missing", cfg.DaemonLockFile(), cfg.DaemonPIDFile())
		}
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if !processAlive(pid) {
		_ = os.Remove(cfg.DaemonPIDFile())
		return StopResult{}, ErrDaemonNotRunning
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if !waitExit(pid, gracePeriod) {
		result.Forced = true
		if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
		}
		if !waitExit(pid, gracePeriod) {
			return result, fmt.Errorf("daemon process %d survived SIGKILL", pid)
		}
	}
	// A clean daemon removes its own pid file; a killed one cannot.
	if err := os.Remove(cfg.DaemonPIDFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file %q: %w", cfg.DaemonPIDFile(), err)
	}
	return result, nil
}

func waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !processAlive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
