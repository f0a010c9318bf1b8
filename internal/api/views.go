package api

import (
	"context"
	"errors"
	"fmt"

	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
	"hyprwall/internal/logging"
	"hyprwall/internal/media"
	"hyprwall/internal/optcache"
	"hyprwall/internal/power"
	"hyprwall/internal/session"
)

// Status reports players, session, power and the current policy decision.
// A missing session is not an error.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	player, err := s.runner.Status(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	status := s.power.Read()
	report := StatusReport{Player: player, Power: newPowerReport(status)}

	sess, err := s.sessions.Load()
	switch {
	case err == nil:
		decision := s.decide(sess, status, s.now())
		report.Session = &sess
		report.Decision = &decision
	case !errors.Is(err, session.ErrNoSession):
		return StatusReport{}, err
	}
	return report, nil
}

// AutoStatus reports the auto-power view of the session.
func (s *Service) AutoStatus() (AutoReport, error) {
	sess, status, decision, err := s.Evaluate()
	if err != nil {
		return AutoReport{}, err
	}
	return AutoReport{
		Enabled:      sess.AutoPower,
		Override:     sess.OverrideProfile,
		LastProfile:  sess.LastProfile,
		LastSwitchAt: sess.LastSwitchAt,
		Cooldown:     sess.Cooldown,
		Power:        newPowerReport(status),
		Decision:     decision,
	}, nil
}

// PowerStatus samples the power supply.
func (s *Service) PowerStatus() power.Status {
	return s.power.Read()
}

// Monitors lists outputs and marks the reference monitor.
func (s *Service) Monitors(ctx context.Context) (MonitorsReport, error) {
	monitors, err := s.displays.Monitors(ctx)
	if err != nil {
		return MonitorsReport{}, err
	}
	report := MonitorsReport{Monitors: monitors}
	if ref, ok := hypr.PickReference(monitors); ok {
		report.Reference = ref.Name
	}
	return report, nil
}

// Library lists supported media in dir.
func (s *Service) Library(dir string, recursive bool) ([]media.Item, error) {
	return media.Scan(dir, recursive)
}

// CacheUsage reports the size of the optimized cache.
func (s *Service) CacheUsage() (optcache.Usage, error) {
	return s.cache.Usage()
}

// CacheEntries lists cached artifacts, newest first.
func (s *Service) CacheEntries() ([]optcache.Entry, error) {
	return s.cache.Entries()
}

// ClearCache removes every optimized artifact. Running players keep their
// open files.
func (s *Service) ClearCache(ctx context.Context) (optcache.Usage, error) {
	var removed optcache.Usage
	err := s.withLock(ctx, func() error {
		var err error
		removed, err = s.cache.Clear()
		return err
	})
	if err == nil {
		s.logger.Info("optimized cache cleared",
			logging.String(logging.FieldEventType, "cache_cleared"),
			logging.Int("entries", removed.Entries),
			logging.Int64("bytes", removed.Bytes),
		)
	}
	return removed, err
}

// OptimizeRequest produces a single artifact without touching the players.
// The target size comes from Width and Height, else from Monitor, else from
// the reference monitor.
type OptimizeRequest struct {
	Source  string
	Monitor string
	Width   int
	Height  int
	Profile encoding.ProfileName
	Mode    media.Mode
	Codec   encoding.Codec
	Encoder encoding.Encoder
}

// Optimize runs the cache for one source and size.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (optcache.Result, error) {
	defaults := s.withDefaults(SetRequest{Mode: req.Mode, Codec: req.Codec, Encoder: req.Encoder, Profile: req.Profile})
	if defaults.Profile == encoding.ProfileOff {
		return optcache.Result{}, errors.New("profile off plays the source directly; choose a profile to optimize")
	}
	if err := encoding.CheckRequested(defaults.Encoder, defaults.Codec); err != nil {
		return optcache.Result{}, err
	}
	source, err := media.Resolve(req.Source)
	if err != nil {
		return optcache.Result{}, err
	}

	width, height := req.Width, req.Height
	if width <= 0 || height <= 0 {
		if req.Monitor != "" {
			if width, height, err = s.displays.Resolution(ctx, req.Monitor); err != nil {
				return optcache.Result{}, err
			}
		} else {
			monitors, err := s.displays.Monitors(ctx)
			if err != nil {
				return optcache.Result{}, err
			}
			ref, ok := hypr.PickReference(monitors)
			if !ok {
				return optcache.Result{}, hypr.ErrNoMonitors
			}
			width, height = ref.Width, ref.Height
		}
	}
	if width <= 0 || height <= 0 {
		return optcache.Result{}, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	return s.cache.EnsureOptimized(ctx, optcache.Request{
		Source:  source,
		Width:   width,
		Height:  height,
		Profile: defaults.Profile,
		Mode:    defaults.Mode,
		Codec:   defaults.Codec,
		Encoder: defaults.Encoder,
	})
}
