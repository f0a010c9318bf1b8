// Package runner launches one mpvpaper process per monitor, records them in
// the state file, and stops them again with verification.
//
// Players run in their own process groups so they outlive the invoking
// command. Stopping targets the recorded group first and then sweeps the
// process table for stragglers that match the monitor and file; a monitor is
// only dropped from the state file once no matching process remains.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"hyprwall/internal/logging"
	"hyprwall/internal/media"
)

// ErrStillRunning is returned when a stop leaves matching players alive.
var ErrStillRunning = errors.New("wallpaper player still running after stop")

// Phase is a per-monitor lifecycle stage.
type Phase string

const (
	PhaseAbsent   Phase = "absent"
	PhaseStarting Phase = "starting"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
)

// Displays reports monitor sizes.
type Displays interface {
	Resolution(ctx context.Context, name string) (int, int, error)
}

// Options configures a Runner.
type Options struct {
	Binary       string
	StateFile    string
	LogFile      string
	Displays     Displays
	Table        ProcessTable
	StopTimeout  time.Duration
	PollInterval time.Duration
	SweepGrace   time.Duration
	StopSwww     bool
	SwwwBinary   string
	PkillBinary  string
	Logger       *slog.Logger
}

// Runner supervises wallpaper players.
type Runner struct {
	binary       string
	playerName   string
	store        StateStore
	logFile      string
	displays     Displays
	table        ProcessTable
	stopTimeout  time.Duration
	pollInterval time.Duration
	sweepGrace   time.Duration
	stopSwww     bool
	swww         string
	pkill        string
	logger       *slog.Logger

	lookPath func(string) (string, error)
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
}

// New builds a runner with defaults for unset options.
func New(opts Options) *Runner {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "mpvpaper"
	}
	table := opts.Table
	if table == nil {
		table = SystemTable{}
	}
	r := &Runner{
		binary:       binary,
		playerName:   filepath.Base(binary),
		store:        StateStore{Path: opts.StateFile},
		logFile:      opts.LogFile,
		displays:     opts.Displays,
		table:        table,
		stopTimeout:  durationOr(opts.StopTimeout, 2*time.Second),
		pollInterval: durationOr(opts.PollInterval, 50*time.Millisecond),
		sweepGrace:   durationOr(opts.SweepGrace, 100*time.Millisecond),
		stopSwww:     opts.StopSwww,
		swww:         stringOr(opts.SwwwBinary, "swww"),
		pkill:        stringOr(opts.PkillBinary, "pkill"),
		logger:       logging.NewComponentLogger(opts.Logger, "runner"),
		lookPath:     exec.LookPath,
		sleep:        sleepContext,
		now:          time.Now,
	}
	return r
}

// Entry is one monitor to start.
type Entry struct {
	Monitor string
	File    string
	Mode    media.Mode
}

// StartOptions tunes a single-monitor start.
type StartOptions struct {
	// ReplaceAll writes a state holding only this entry instead of merging.
	ReplaceAll bool
	ExtraArgs  []string
}

// Start launches one player and records it.
func (r *Runner) Start(ctx context.Context, entry Entry, opts StartOptions) (MonitorState, error) {
	if err := r.checkBinary(); err != nil {
		return MonitorState{}, err
	}
	if opts.ReplaceAll {
		r.killSwww(ctx)
	}
	ms, err := r.spawn(ctx, entry, opts.ExtraArgs)
	if err != nil {
		return MonitorState{}, err
	}

	state := State{Monitors: map[string]MonitorState{}}
	if !opts.ReplaceAll {
		existing, _, err := r.store.Load()
		if err != nil {
			r.logger.Warn("existing state unreadable; replacing it",
				logging.Error(err),
				logging.String(logging.FieldEventType, "state_read_failed"),
				logging.String(logging.FieldErrorHint, "inspect "+r.store.Path),
				logging.String(logging.FieldImpact, "other monitors are no longer tracked"),
			)
		} else {
			state = existing
		}
	}
	state.Monitors[entry.Monitor] = ms
	if err := r.store.Save(state); err != nil {
		return ms, err
	}
	return ms, nil
}

// StartMany launches every entry and writes one complete state.
func (r *Runner) StartMany(ctx context.Context, entries []Entry, extraArgs []string) (State, error) {
	if len(entries) == 0 {
		return State{}, errors.New("start requires at least one monitor")
	}
	if err := r.checkBinary(); err != nil {
		return State{}, err
	}
	r.killSwww(ctx)

	state := State{Monitors: make(map[string]MonitorState, len(entries))}
	for _, entry := range entries {
		ms, err := r.spawn(ctx, entry, extraArgs)
		if err != nil {
			// Record what did start so a later stop can find it.
			if saveErr := r.store.Save(state); saveErr != nil {
				return state, errors.Join(err, saveErr)
			}
			return state, err
		}
		state.Monitors[entry.Monitor] = ms
	}
	if err := r.store.Save(state); err != nil {
		return state, err
	}
	return state, nil
}

func (r *Runner) checkBinary() error {
	if _, err := r.lookPath(r.binary); err != nil {
		return fmt.Errorf("%s not found in PATH; install mpvpaper first: %w", r.binary, err)
	}
	return nil
}

func (r *Runner) spawn(ctx context.Context, entry Entry, extraArgs []string) (MonitorState, error) {
	logger := r.logger.With(logging.String(logging.FieldMonitor, entry.Monitor))
	logger.Debug("player phase", logging.String("phase", string(PhaseStarting)))

	var width, height int
	if r.displays != nil {
		w, h, err := r.displays.Resolution(ctx, entry.Monitor)
		if err != nil {
			return MonitorState{}, err
		}
		width, height = w, h
	}
	mode := entry.Mode
	if mode == "" {
		mode = media.ModeAuto
	}
	effective := mode.Effective(entry.File)

	args := append([]string{"-o", MpvOptions(entry.File, effective, width, height)}, extraArgs...)
	args = append(args, entry.Monitor, entry.File)
	cmd := exec.Command(r.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var logf *os.File
	if r.logFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.logFile), 0o755); err != nil {
			return MonitorState{}, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(r.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return MonitorState{}, fmt.Errorf("open player log: %w", err)
		}
		logf = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	err := cmd.Start()
	if logf != nil {
		_ = logf.Close()
	}
	if err != nil {
		return MonitorState{}, fmt.Errorf("start %s on %s: %w", r.playerName, entry.Monitor, err)
	}
	pid := cmd.Process.Pid
	go func() {
		_ = cmd.Wait()
	}()

	pgid, err := r.table.Getpgid(pid)
	if err != nil {
		pgid = pid
	}
	ms := MonitorState{
		PID:       pid,
		PGID:      pgid,
		File:      entry.File,
		Mode:      effective,
		StartedAt: r.now(),
		Needle:    entry.File,
	}
	logger.Info("wallpaper player started",
		logging.String(logging.FieldEventType, "player_started"),
		logging.String("phase", string(PhaseRunning)),
		logging.Int("pid", pid),
		logging.String("file", entry.File),
		logging.String("mode", string(effective)),
	)
	return ms, nil
}

// killSwww stops a competing swww daemon, best-effort.
func (r *Runner) killSwww(ctx context.Context) {
	if !r.stopSwww {
		return
	}
	if _, err := r.lookPath(r.swww); err != nil {
		return
	}
	for _, name := range []string{"swww-daemon", "swww"} {
		if err := exec.CommandContext(ctx, r.pkill, "-x", name).Run(); err == nil {
			r.logger.Info("stopped competing wallpaper daemon", logging.String("process", name))
		}
	}
}

// MonitorStop reports what stopping one monitor did.
type MonitorStop struct {
	Monitor   string       `json:"monitor"`
	PID       int          `json:"pid"`
	PGID      int          `json:"pgid"`
	Confirmed bool         `json:"confirmed"`
	Term      SignalResult `json:"term,omitempty"`
	Kill      SignalResult `json:"kill,omitempty"`
	Swept     []int        `json:"swept,omitempty"`
	Remaining []int        `json:"remaining,omitempty"`
}

// Stopped reports whether nothing matching the monitor is left.
func (m MonitorStop) Stopped() bool { return len(m.Remaining) == 0 }

// StopReport summarizes a stop.
type StopReport struct {
	Monitors []MonitorStop `json:"monitors"`
}

// AnyStopped reports whether a player was confirmed or swept.
func (r StopReport) AnyStopped() bool {
	for _, m := range r.Monitors {
		if m.Confirmed || len(m.Swept) > 0 {
			return true
		}
	}
	return false
}

// Survivors lists monitors that still have a player.
func (r StopReport) Survivors() []string {
	var out []string
	for _, m := range r.Monitors {
		if !m.Stopped() {
			out = append(out, m.Monitor)
		}
	}
	return out
}

// Stop stops every recorded player.
func (r *Runner) Stop(ctx context.Context) (StopReport, error) {
	return r.stop(ctx, nil)
}

// StopMonitor stops only the named monitor.
func (r *Runner) StopMonitor(ctx context.Context, name string) (StopReport, error) {
	return r.stop(ctx, func(monitor string) bool { return monitor == name })
}

func (r *Runner) stop(ctx context.Context, match func(string) bool) (StopReport, error) {
	state, _, err := r.store.Load()
	if err != nil {
		return StopReport{}, err
	}
	var report StopReport
	var stopErr error
	for _, name := range state.Names() {
		if match != nil && !match(name) {
			continue
		}
		result, err := r.stopOne(ctx, name, state.Monitors[name])
		report.Monitors = append(report.Monitors, result)
		if err != nil {
			stopErr = fmt.Errorf("stop %s: %w", name, err)
			break
		}
		if result.Stopped() {
			delete(state.Monitors, name)
		}
	}
	// Players already stopped are dropped from state even when a later one fails.
	if err := r.store.Save(state); err != nil {
		return report, errors.Join(stopErr, err)
	}
	if stopErr != nil {
		return report, stopErr
	}
	if survivors := report.Survivors(); len(survivors) > 0 {
		return report, fmt.Errorf("%w: %s", ErrStillRunning, strings.Join(survivors, ", "))
	}
	return report, nil
}

func (r *Runner) stopOne(ctx context.Context, monitor string, ms MonitorState) (MonitorStop, error) {
	logger := r.logger.With(logging.String(logging.FieldMonitor, monitor))
	result := MonitorStop{Monitor: monitor, PID: ms.PID, PGID: ms.PGID}

	if r.confirmed(ctx, ms.PID) {
		result.Confirmed = true
		logger.Debug("player phase", logging.String("phase", string(PhaseStopping)), logging.Int("pid", ms.PID))
		result.Term = r.table.SignalGroup(ms.PGID, syscall.SIGTERM)
		if result.Term != SignalDelivered {
			result.Term = r.table.Signal(ms.PID, syscall.SIGTERM)
		}
		if err := r.waitGone(ctx, ms); err != nil {
			return result, err
		}
		if r.table.GroupAlive(ms.PGID) || r.table.Alive(ms.PID) {
			result.Kill = r.table.SignalGroup(ms.PGID, syscall.SIGKILL)
			if pidKill := r.table.Signal(ms.PID, syscall.SIGKILL); result.Kill != SignalDelivered {
				result.Kill = pidKill
			}
		}
	}

	needle := ms.Needle
	if needle == "" {
		needle = ms.File
	}
	pids, err := r.sweepMatches(ctx, monitor, needle)
	if err != nil {
		return result, err
	}
	if len(pids) > 0 {
		result.Swept = pids
		for _, pid := range pids {
			r.table.Signal(pid, syscall.SIGTERM)
		}
		if err := r.sleep(ctx, r.sweepGrace); err != nil {
			return result, err
		}
		for _, pid := range pids {
			pgid, err := r.table.Getpgid(pid)
			if err != nil || r.table.SignalGroup(pgid, syscall.SIGKILL) == SignalSkipped {
				r.table.Signal(pid, syscall.SIGKILL)
			}
		}
	}

	remaining, err := r.sweepMatches(ctx, monitor, needle)
	if err != nil {
		return result, err
	}
	result.Remaining = remaining
	if result.Stopped() {
		logger.Info("wallpaper player stopped",
			logging.String(logging.FieldEventType, "player_stopped"),
			logging.String("phase", string(PhaseAbsent)),
			logging.Bool("confirmed", result.Confirmed),
			logging.Int("swept", len(result.Swept)),
		)
	} else {
		logger.Warn("wallpaper player survived stop",
			logging.String(logging.FieldEventType, "player_stop_incomplete"),
			logging.String(logging.FieldErrorHint, fmt.Sprintf("check processes %v; stop them manually", remaining)),
			logging.String(logging.FieldImpact, "state kept so the next stop retries"),
			logging.String("term", string(result.Term)),
			logging.String("kill", string(result.Kill)),
		)
	}
	return result, nil
}

func (r *Runner) confirmed(ctx context.Context, pid int) bool {
	if !r.table.Alive(pid) {
		return false
	}
	cmdline, err := r.table.Cmdline(ctx, pid)
	if err != nil {
		return false
	}
	return strings.Contains(cmdline, r.playerName)
}

func (r *Runner) waitGone(ctx context.Context, ms MonitorState) error {
	deadline := r.now().Add(r.stopTimeout)
	for r.now().Before(deadline) {
		if !r.table.GroupAlive(ms.PGID) && !r.table.Alive(ms.PID) {
			return nil
		}
		if err := r.sleep(ctx, r.pollInterval); err != nil {
			return err
		}
	}
	return nil
}

// sweepMatches finds player processes for monitor, preferring ones that also
// carry needle and falling back to monitor only.
func (r *Runner) sweepMatches(ctx context.Context, monitor, needle string) ([]int, error) {
	procs, err := r.table.Processes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	self := os.Getpid()
	find := func(needle string) []int {
		var pids []int
		token := " " + monitor + " "
		for _, p := range procs {
			if p.PID == self || !strings.Contains(p.Cmdline, r.playerName) {
				continue
			}
			if monitor != "" && !strings.Contains(" "+p.Cmdline+" ", token) {
				continue
			}
			if needle != "" && !strings.Contains(p.Cmdline, needle) {
				continue
			}
			pids = append(pids, p.PID)
		}
		return pids
	}
	if pids := find(needle); len(pids) > 0 {
		return pids, nil
	}
	return find(""), nil
}

// MonitorStatus describes one recorded monitor.
type MonitorStatus struct {
	Monitor   string     `json:"monitor"`
	Running   bool       `json:"running"`
	PID       int        `json:"pid"`
	PGID      int        `json:"pgid"`
	File      string     `json:"file"`
	Needle    string     `json:"needle"`
	Mode      media.Mode `json:"mode"`
	StartedAt time.Time  `json:"started_at"`
	Exists    bool       `json:"exists"`
	IsPlayer  bool       `json:"is_player"`
}

// Status is a runner snapshot.
type Status struct {
	Running   bool            `json:"running"`
	Monitors  []MonitorStatus `json:"monitors"`
	StateFile string          `json:"state_file"`
	LogFile   string          `json:"log_file"`
	// Legacy reports that the state file still uses the flat layout.
	Legacy bool `json:"legacy"`
}

// Status inspects every recorded monitor.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	state, legacy, err := r.store.Load()
	if err != nil {
		return Status{}, err
	}
	status := Status{StateFile: r.store.Path, LogFile: r.logFile, Legacy: legacy}
	for _, name := range state.Names() {
		ms := state.Monitors[name]
		exists := r.table.Alive(ms.PID)
		isPlayer := exists && r.confirmed(ctx, ms.PID)
		running := isPlayer
		if !running {
			pids, err := r.sweepMatches(ctx, name, ms.Needle)
			if err != nil {
				return Status{}, err
			}
			running = len(pids) > 0
		}
		status.Running = status.Running || running
		status.Monitors = append(status.Monitors, MonitorStatus{
			Monitor:   name,
			Running:   running,
			PID:       ms.PID,
			PGID:      ms.PGID,
			File:      ms.File,
			Needle:    ms.Needle,
			Mode:      ms.Mode,
			StartedAt: ms.StartedAt,
			Exists:    exists,
			IsPlayer:  isPlayer,
		})
	}
	return status, nil
}

// State returns the recorded players.
func (r *Runner) State() (State, error) {
	state, _, err := r.store.Load()
	return state, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

func stringOr(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
