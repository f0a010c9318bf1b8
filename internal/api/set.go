package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
	"hyprwall/internal/logging"
	"hyprwall/internal/media"
	"hyprwall/internal/optcache"
	"hyprwall/internal/policy"
	"hyprwall/internal/session"
)

// SetRequest selects a wallpaper. Empty fields take the configured defaults.
type SetRequest struct {
	Source    string
	Monitors  []string
	Mode      media.Mode
	Codec     encoding.Codec
	Encoder   encoding.Encoder
	Profile   encoding.ProfileName
	AutoPower bool
	Cooldown  time.Duration
	ExtraArgs []string
}

func (s *Service) withDefaults(req SetRequest) SetRequest {
	if req.Mode == "" {
		req.Mode = media.Mode(s.cfg.Encoding.Mode)
	}
	if req.Codec == "" {
		req.Codec = encoding.Codec(s.cfg.Encoding.Codec)
	}
	if req.Encoder == "" {
		req.Encoder = encoding.Encoder(s.cfg.Encoding.Encoder)
	}
	if req.Profile == "" {
		req.Profile = encoding.ProfileName(s.cfg.Encoding.Profile)
	}
	if req.Cooldown <= 0 {
		req.Cooldown = s.cfg.Cooldown()
	}
	return req
}

// SetWallpaper validates the source, optimizes it once per monitor
// resolution, restarts the players and records the session.
func (s *Service) SetWallpaper(ctx context.Context, req SetRequest) (SetResult, error) {
	req = s.withDefaults(req)
	source, err := media.Resolve(req.Source)
	if err != nil {
		return SetResult{}, err
	}
	if _, err := media.ParseMode(string(req.Mode)); err != nil {
		return SetResult{}, err
	}
	if _, err := encoding.ParseProfileName(string(req.Profile)); err != nil {
		return SetResult{}, err
	}
	if err := encoding.CheckRequested(req.Encoder, req.Codec); err != nil {
		return SetResult{}, err
	}
	if req.AutoPower && req.Profile == encoding.ProfileOff {
		return SetResult{}, ErrAutoPowerWithoutProfile
	}

	monitors, err := s.selectMonitors(ctx, req.Monitors)
	if err != nil {
		return SetResult{}, err
	}

	previous := encoding.ProfileBalanced
	if prev, err := s.sessions.Load(); err == nil {
		previous = prev.LastProfile
	} else if !errors.Is(err, session.ErrNoSession) {
		logging.WarnWithContext(s.logger, "previous session unreadable", "session_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the session file will be replaced"),
			logging.String(logging.FieldImpact, "auto-power starts from the balanced profile"),
		)
	}
	profile := req.Profile
	if req.AutoPower {
		profile = policy.ChooseProfile(s.power.Read(), previous, s.cfg.Hysteresis())
	}

	plans, err := s.plan(ctx, source, monitors, profile, req.Mode, req.Codec, req.Encoder)
	if err != nil {
		return SetResult{}, err
	}

	lastProfile := profile
	if profile == encoding.ProfileOff {
		lastProfile = previous
	}
	ref, _ := hypr.PickReference(monitors)
	sess := session.Session{
		Source:      source,
		RefMonitor:  ref.Name,
		Mode:        req.Mode,
		Codec:       req.Codec,
		Encoder:     req.Encoder,
		AutoPower:   req.AutoPower,
		LastProfile: lastProfile,
		Cooldown:    req.Cooldown,
	}

	err = s.withLock(ctx, func() error {
		if _, err := s.restart(ctx, plans, req.ExtraArgs); err != nil {
			return err
		}
		return s.sessions.Save(sess)
	})
	if err != nil {
		return SetResult{}, err
	}

	s.logger.Info("wallpaper set",
		logging.String(logging.FieldEventType, "wallpaper_set"),
		logging.String("source", source),
		logging.String(logging.FieldProfile, string(profile)),
		logging.Int("monitors", len(plans)),
		logging.Bool("auto_power", req.AutoPower),
	)
	return SetResult{Source: source, Profile: profile, Monitors: plans, Session: sess}, nil
}

// selectMonitors returns all outputs, or the named subset in the given order.
func (s *Service) selectMonitors(ctx context.Context, names []string) ([]hypr.Monitor, error) {
	all, err := s.displays.Monitors(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, hypr.ErrNoMonitors
	}
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]hypr.Monitor, len(all))
	for _, m := range all {
		byName[m.Name] = m
	}
	selected := make([]hypr.Monitor, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		m, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", hypr.ErrMonitorNotFound, name)
		}
		selected = append(selected, m)
	}
	return selected, nil
}

// plan produces one artifact per unique resolution and maps it onto every
// monitor of that size. Profile off plays the source directly.
func (s *Service) plan(ctx context.Context, source string, monitors []hypr.Monitor, profile encoding.ProfileName, mode media.Mode, codec encoding.Codec, encoder encoding.Encoder) ([]MonitorPlan, error) {
	type size struct{ w, h int }
	results := make(map[size]*optcache.Result)
	plans := make([]MonitorPlan, 0, len(monitors))
	for _, m := range monitors {
		if m.Width <= 0 || m.Height <= 0 {
			return nil, fmt.Errorf("invalid resolution for monitor %q: %dx%d", m.Name, m.Width, m.Height)
		}
		plan := MonitorPlan{Monitor: m.Name, Width: m.Width, Height: m.Height, File: source, Mode: mode}
		if profile != encoding.ProfileOff {
			key := size{m.Width, m.Height}
			result, ok := results[key]
			if !ok {
				res, err := s.cache.EnsureOptimized(ctx, optcache.Request{
					Source:  source,
					Width:   m.Width,
					Height:  m.Height,
					Profile: profile,
					Mode:    mode,
					Codec:   codec,
					Encoder: encoder,
				})
				if err != nil {
					return nil, fmt.Errorf("optimize for %dx%d: %w", m.Width, m.Height, err)
				}
				result = &res
				results[key] = result
			}
			plan.File = result.Path
			plan.Optimization = result
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
