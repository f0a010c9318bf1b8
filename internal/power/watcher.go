package power

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"hyprwall/internal/logging"
)

// Watcher listens for power_supply uevents and signals Events() when one
// arrives. Notifications are coalesced; a pending signal is never duplicated.
type Watcher struct {
	logger *slog.Logger
	events chan struct{}

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewWatcher builds an unstarted watcher.
func NewWatcher(logger *slog.Logger) *Watcher {
	return &Watcher{
		logger: logging.NewComponentLogger(logger, "power-watcher"),
		events: make(chan struct{}, 1),
	}
}

// Events fires after a power-supply change. A nil watcher returns a nil
// channel, which blocks forever in a select.
func (w *Watcher) Events() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.events
}

// Start connects to the kernel uevent socket. Connection failures are logged
// and leave the watcher idle; callers keep polling.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		w.logger.Warn("power uevent watch unavailable; falling back to polling",
			logging.Error(err),
			logging.String(logging.FieldEventType, "power_watch_connect_failed"),
			logging.String(logging.FieldErrorHint, "check netlink socket permissions"),
			logging.String(logging.FieldImpact, "profile switches wait for the next poll"),
		)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true
	go w.loop(ctx, conn, w.quit)

	w.logger.Debug("power uevent watcher started",
		logging.String(logging.FieldEventType, "power_watch_started"),
	)
	return nil
}

// Stop closes the socket. It is safe to call more than once.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
}

// Running reports whether the socket is attached.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, supplyMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.logger.Debug("power supply event",
				logging.String("action", string(uevent.Action)),
				logging.String("kobj", uevent.KObj),
			)
			w.notify()
		case err := <-errs:
			w.logger.Warn("power uevent watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "power_watch_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "profile switches wait for the next poll"),
			)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

func supplyMatcher() netlink.Matcher {
	action := "change|add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "power_supply",
		},
	})
	return rules
}
