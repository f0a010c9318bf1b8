package runner

import (
	"context"
	"errors"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// SignalResult is the outcome of one signal attempt.
type SignalResult string

const (
	SignalDelivered        SignalResult = "delivered"
	SignalNotFound         SignalResult = "not_found"
	SignalPermissionDenied SignalResult = "permission_denied"
	SignalSkipped          SignalResult = "skipped"
)

// ProcInfo is one process table row.
type ProcInfo struct {
	PID     int
	Cmdline string
}

// ProcessTable abstracts process inspection and signalling.
type ProcessTable interface {
	// Alive reports whether pid exists; a permission error counts as alive.
	Alive(pid int) bool
	// GroupAlive reports whether any process remains in pgid.
	GroupAlive(pgid int) bool
	// Cmdline returns the space-joined argument vector of pid.
	Cmdline(ctx context.Context, pid int) (string, error)
	// Processes lists every visible process with its command line.
	Processes(ctx context.Context) ([]ProcInfo, error)
	Signal(pid int, sig syscall.Signal) SignalResult
	SignalGroup(pgid int, sig syscall.Signal) SignalResult
	Getpgid(pid int) (int, error)
}

// SystemTable reads /proc through gopsutil and signals with kill(2).
type SystemTable struct{}

func (SystemTable) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return probe(unix.Kill(pid, 0))
}

func (SystemTable) GroupAlive(pgid int) bool {
	if pgid <= 1 {
		return false
	}
	return probe(unix.Kill(-pgid, 0))
}

func probe(err error) bool {
	return err == nil || errors.Is(err, unix.EPERM)
}

func (SystemTable) Cmdline(ctx context.Context, pid int) (string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", err
	}
	return p.CmdlineWithContext(ctx)
}

func (SystemTable) Processes(ctx context.Context) ([]ProcInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProcInfo, 0, len(procs))
	for _, p := range procs {
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || strings.TrimSpace(cmdline) == "" {
			continue
		}
		out = append(out, ProcInfo{PID: int(p.Pid), Cmdline: cmdline})
	}
	return out, nil
}

func (SystemTable) Signal(pid int, sig syscall.Signal) SignalResult {
	if pid <= 0 {
		return SignalSkipped
	}
	return classify(unix.Kill(pid, sig))
}

// SignalGroup refuses the caller's own group and the init group.
func (SystemTable) SignalGroup(pgid int, sig syscall.Signal) SignalResult {
	if pgid <= 1 || pgid == unix.Getpgrp() {
		return SignalSkipped
	}
	return classify(unix.Kill(-pgid, sig))
}

func (SystemTable) Getpgid(pid int) (int, error) {
	return unix.Getpgid(pid)
}

func classify(err error) SignalResult {
	switch {
	case err == nil:
		return SignalDelivered
	case errors.Is(err, unix.ESRCH):
		return SignalNotFound
	case errors.Is(err, unix.EPERM):
		return SignalPermissionDenied
	}
	return SignalNotFound
}
