package daemonctl

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"hyprwall/internal/testsupport"
)

func startProcess(t *testing.T, script string) *exec.Cmd {
	t.Helper()
	path := testsupport.WriteScript(t, t.TempDir(), "fake-daemon", script)
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start fake daemon: %v", err)
	}
	go func() { _ = cmd.Wait() }()
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return cmd
}

func writePID(t *testing.T, path string, pid int) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := Stop(cfg, 100*time.Millisecond); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopTerminatesGracefully(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	cfg := testsupport.NewConfig(t)
	proc := startProcess(t, "while :; do sleep 0.1; done\n")
	writePID(t, cfg.DaemonPIDFile(), proc.Process.Pid)

	result, err := Stop(cfg, 2*time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.PID != proc.Process.Pid || result.Forced {
		t.Fatalf("unexpected result %+v", result)
	}
	if processAlive(proc.Process.Pid) {
		t.Fatal("process should be gone")
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	cfg := testsupport.NewConfig(t)
	proc := startProcess(t, "trap '' TERM\nwhile :; do sleep 0.1; done\n")
	writePID(t, cfg.DaemonPIDFile(), proc.Process.Pid)
	// Let the shell install its trap before signalling.
	time.Sleep(100 * time.Millisecond)

	result, err := Stop(cfg, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !result.Forced {
		t.Fatalf("expected forced stop, got %+v", result)
	}
	if _, err := os.Stat(cfg.DaemonPIDFile()); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed: %v", err)
	}
}

func TestStopClearsStalePIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writePID(t, cfg.DaemonPIDFile(), 1<<22+7)
	if _, err := Stop(cfg, 100*time.Millisecond); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if _, err := os.Stat(cfg.DaemonPIDFile()); !os.IsNotExist(err) {
		t.Fatalf("stale pid file should be removed: %v", err)
	}
}

func TestLaunchPassesConfig(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	exe := testsupport.WriteScript(t, dir, "hyprwall", "echo \"$@\" > '"+argsFile+"'\n")

	if _, err := Launch(exe, LaunchOptions{ConfigPath: "/etc/hyprwall.toml", Verbose: true}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(argsFile); err == nil && len(data) > 0 {
			if got := strings.TrimSpace(string(data)); got != "auto --config /etc/hyprwall.toml --verbose" {
				t.Fatalf("unexpected args %q", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("launched process never ran")
}

func TestEnsureStartedReportsEarlyExit(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	cfg := testsupport.NewConfig(t)
	exe := testsupport.WriteScript(t, t.TempDir(), "hyprwall", "exit 1\n")
	_, err := EnsureStarted(cfg, exe, LaunchOptions{}, 3*time.Second)
	if err == nil || !strings.Contains(err.Error(), "exited during startup") {
		t.Fatalf("expected startup failure, got %v", err)
	}
}
