package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"hyprwall/internal/api"
	"hyprwall/internal/encoding"
	"hyprwall/internal/fileutil"
	"hyprwall/internal/logging"
	"hyprwall/internal/policy"
	"hyprwall/internal/power"
	"hyprwall/internal/session"
	"hyprwall/internal/testsupport"
)

type step struct {
	sess     session.Session
	status   power.Status
	decision policy.Decision
	err      error
}

type fakeController struct {
	mu       sync.Mutex
	steps    []step
	calls    int
	applied  []encoding.ProfileName
	applyErr error
}

func (f *fakeController) Evaluate() (session.Session, power.Status, policy.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	s := f.steps[i]
	return s.sess, s.status, s.decision, s.err
}

func (f *fakeController) ApplyProfile(_ context.Context, target encoding.ProfileName, opts api.ApplyOptions) (api.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if opts.Pin {
		return api.ApplyResult{}, errors.New("daemon must not pin profiles")
	}
	if f.applyErr != nil {
		return api.ApplyResult{}, f.applyErr
	}
	f.applied = append(f.applied, target)
	return api.ApplyResult{Profile: target, Previous: encoding.ProfileBalanced}, nil
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func autoSession() session.Session {
	sess := session.Default()
	sess.Source = "/w/a.mp4"
	sess.AutoPower = true
	return sess
}

func onBattery(percent int) power.Status {
	return power.Status{OnAC: boolPtr(false), Percent: intPtr(percent)}
}

func hold(target, last encoding.ProfileName, reason policy.Reason) policy.Decision {
	return policy.Decision{Target: target, Last: last, Reason: reason}
}

func switchTo(target encoding.ProfileName) policy.Decision {
	return policy.Decision{Target: target, Last: encoding.ProfileBalanced, Switch: true, Reason: policy.ReasonSwitch}
}

func newTestDaemon(t *testing.T, ctrl Controller) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, ctrl, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// recordSleeps replaces the sleeper and cancels after n sleeps.
func recordSleeps(d *Daemon, cancel context.CancelFunc, n int) *[]time.Duration {
	var slept []time.Duration
	d.sleep = func(ctx context.Context, dur time.Duration, _ ...<-chan struct{}) error {
		slept = append(slept, dur)
		if len(slept) >= n {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	return &slept
}

func TestRunOnceAppliesSwitch(t *testing.T) {
	ctrl := &fakeController{steps: []step{{sess: autoSession(), status: onBattery(30), decision: switchTo(encoding.ProfileEco)}}}
	d := newTestDaemon(t, ctrl)

	if err := d.Run(context.Background(), true); err != nil {
		t.Fatalf("Run once: %v", err)
	}
	if len(ctrl.applied) != 1 || ctrl.applied[0] != encoding.ProfileEco {
		t.Fatalf("applied = %v", ctrl.applied)
	}
}

func TestRunOnceHoldsWithoutSwitch(t *testing.T) {
	ctrl := &fakeController{steps: []step{{sess: autoSession(), status: onBattery(50), decision: hold(encoding.ProfileBalanced, encoding.ProfileBalanced, policy.ReasonUnchanged)}}}
	d := newTestDaemon(t, ctrl)
	if err := d.Run(context.Background(), true); err != nil {
		t.Fatalf("Run once: %v", err)
	}
	if len(ctrl.applied) != 0 {
		t.Fatalf("nothing should be applied, got %v", ctrl.applied)
	}
}

func TestRunRejectsDisabledSession(t *testing.T) {
	sess := autoSession()
	sess.AutoPower = false
	d := newTestDaemon(t, &fakeController{steps: []step{{sess: sess}}})
	if err := d.Run(context.Background(), false); !errors.Is(err, ErrAutoPowerDisabled) {
		t.Fatalf("expected ErrAutoPowerDisabled, got %v", err)
	}
}

func TestRunRequiresSession(t *testing.T) {
	d := newTestDaemon(t, &fakeController{steps: []step{{err: session.ErrNoSession}}})
	if err := d.Run(context.Background(), true); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRunIsSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	held := flock.New(cfg.DaemonLockFile())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	d, err := New(cfg, &fakeController{steps: []step{{sess: autoSession()}}}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(context.Background(), true); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestLoopIntervalsAndDebounce(t *testing.T) {
	ctrl := &fakeController{steps: []step{
		{sess: autoSession(), status: onBattery(50)},
		{sess: autoSession(), status: onBattery(50), decision: hold(encoding.ProfileBalanced, encoding.ProfileBalanced, policy.ReasonUnchanged)},
		{sess: autoSession(), status: onBattery(30), decision: switchTo(encoding.ProfileEco)},
		{sess: autoSession(), status: power.Status{OnAC: boolPtr(true)}, decision: hold(encoding.ProfileBalanced, encoding.ProfileEco, policy.ReasonCooldown)},
	}}
	d := newTestDaemon(t, ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slept := recordSleeps(d, cancel, 4)

	if err := d.Run(ctx, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []time.Duration{25 * time.Second, 10 * time.Second, 25 * time.Second, 90 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Fatalf("sleep %d = %s, want %s (all %v)", i, (*slept)[i], want[i], *slept)
		}
	}
	if len(ctrl.applied) != 1 || ctrl.applied[0] != encoding.ProfileEco {
		t.Fatalf("applied = %v", ctrl.applied)
	}
}

func TestLoopSurvivesApplyErrors(t *testing.T) {
	ctrl := &fakeController{
		steps:    []step{{sess: autoSession(), status: onBattery(10), decision: switchTo(encoding.ProfileEcoStrict)}},
		applyErr: errors.New("ffmpeg exploded"),
	}
	d := newTestDaemon(t, ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slept := recordSleeps(d, cancel, 3)

	if err := d.Run(ctx, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(*slept) != 3 {
		t.Fatalf("loop should keep polling after failures, slept %v", *slept)
	}
	for _, dur := range *slept {
		if dur != 25*time.Second {
			t.Fatalf("failed switches must not debounce, slept %v", *slept)
		}
	}
}

func TestLoopExitsWhenAutoPowerTurnedOff(t *testing.T) {
	off := autoSession()
	off.AutoPower = false
	ctrl := &fakeController{steps: []step{
		{sess: autoSession()},
		{sess: off},
	}}
	d := newTestDaemon(t, ctrl)
	d.sleep = func(context.Context, time.Duration, ...<-chan struct{}) error {
		t.Fatal("loop should exit before sleeping")
		return nil
	}
	if err := d.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSleepOrWake(t *testing.T) {
	wake := make(chan struct{}, 1)
	wake <- struct{}{}
	start := time.Now()
	if err := sleepOrWake(context.Background(), time.Minute, nil, wake); err != nil {
		t.Fatalf("sleepOrWake: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("wake channel should end the sleep early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepOrWake(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSessionWatcherSignalsOnAtomicSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	w, err := newSessionWatcher(path, logging.NewNop())
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Skipf("watch unavailable: %v", err)
	}
	defer w.Stop()

	if err := fileutil.WriteFileAtomic(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fileutil.WriteJSONAtomic(path, map[string]string{"source": "/w/a.mp4"}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("expected a session change notification")
	}
}
