package api

import (
	"context"
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
	"hyprwall/internal/logging"
	"hyprwall/internal/media"
	"hyprwall/internal/policy"
	"hyprwall/internal/power"
	"hyprwall/internal/session"
)

// ApplyOptions controls how a profile change is recorded.
type ApplyOptions struct {
	// Pin stores the profile as a manual override that the daemon honours.
	Pin bool
}

// ApplyProfile re-optimizes the session source with target and restarts the
// players. Without Pin the existing override is preserved.
func (s *Service) ApplyProfile(ctx context.Context, target encoding.ProfileName, opts ApplyOptions) (ApplyResult, error) {
	target, err := encoding.ParseProfileName(string(target))
	if err != nil {
		return ApplyResult{}, err
	}
	sess, err := s.sessions.Load()
	if err != nil {
		return ApplyResult{}, err
	}
	source, err := media.Resolve(sess.Source)
	if err != nil {
		return ApplyResult{}, err
	}
	monitors, err := s.activeMonitors(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	plans, err := s.plan(ctx, source, monitors, target, sess.Mode, sess.Codec, sess.Encoder)
	if err != nil {
		return ApplyResult{}, err
	}

	previous := sess.LastProfile
	err = s.withLock(ctx, func() error {
		current, err := s.sessions.Load()
		if err != nil {
			return err
		}
		if current.Source != sess.Source {
			return ErrSessionChanged
		}
		if _, err := s.restart(ctx, plans, nil); err != nil {
			return err
		}
		if target != encoding.ProfileOff {
			current.LastProfile = target
		}
		current.LastSwitchAt = s.now()
		if opts.Pin {
			current.OverrideProfile = target
		}
		sess = current
		return s.sessions.Save(current)
	})
	if err != nil {
		return ApplyResult{}, err
	}

	s.logger.Info("profile applied",
		logging.String(logging.FieldEventType, "profile_applied"),
		logging.String(logging.FieldProfile, string(target)),
		logging.String("previous", string(previous)),
		logging.Bool("pinned", opts.Pin),
		logging.Int("monitors", len(plans)),
	)
	return ApplyResult{
		Profile:  target,
		Previous: previous,
		Pinned:   opts.Pin,
		Monitors: plans,
		Session:  sess,
	}, nil
}

// activeMonitors returns the monitors that currently have a recorded player,
// or every output when none is recorded. Recorded monitors that have
// disappeared are skipped.
func (s *Service) activeMonitors(ctx context.Context) ([]hypr.Monitor, error) {
	all, err := s.displays.Monitors(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, hypr.ErrNoMonitors
	}
	state, err := s.runner.State()
	if err != nil || state.Empty() {
		return all, nil
	}
	active := make([]hypr.Monitor, 0, len(state.Monitors))
	for _, m := range all {
		if _, ok := state.Monitors[m.Name]; ok {
			active = append(active, m)
		}
	}
	if len(active) == 0 {
		return all, nil
	}
	return active, nil
}

// ClearOverride hands profile selection back to the policy.
func (s *Service) ClearOverride(ctx context.Context) (session.Session, error) {
	return s.updateSession(ctx, func(sess *session.Session) {
		sess.OverrideProfile = ""
	})
}

// SetAutoPower toggles policy-driven profile switching for the session.
func (s *Service) SetAutoPower(ctx context.Context, enabled bool) (session.Session, error) {
	return s.updateSession(ctx, func(sess *session.Session) {
		sess.AutoPower = enabled
	})
}

func (s *Service) updateSession(ctx context.Context, mutate func(*session.Session)) (session.Session, error) {
	var sess session.Session
	err := s.withLock(ctx, func() error {
		current, err := s.sessions.Load()
		if err != nil {
			return err
		}
		mutate(&current)
		sess = current
		return s.sessions.Save(current)
	})
	return sess, err
}

// Session returns the recorded session.
func (s *Service) Session() (session.Session, error) {
	return s.sessions.Load()
}

// Evaluate samples power and runs the policy against the session.
func (s *Service) Evaluate() (session.Session, power.Status, policy.Decision, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		return session.Session{}, power.Status{}, policy.Decision{}, err
	}
	status := s.power.Read()
	decision := s.decide(sess, status, s.now())
	return sess, status, decision, nil
}

func (s *Service) decide(sess session.Session, status power.Status, now time.Time) policy.Decision {
	return policy.Evaluate(status, sess.LastProfile, sess.LastSwitchAt, sess.Cooldown, sess.OverrideProfile, s.cfg.Hysteresis(), now)
}
