// Package policy maps a power snapshot to an encoding profile.
//
// Two hysteresis bands keep the choice from oscillating near a threshold:
// a profile is entered at or below its enter percentage and left only once
// the charge rises strictly above its exit percentage. A cooldown gate and a
// manual override sit on top of the band logic.
package policy

import (
	"errors"
	"fmt"
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/power"
)

// Hysteresis holds the battery thresholds in percent.
type Hysteresis struct {
	StrictEnter int
	StrictExit  int
	EcoEnter    int
	EcoExit     int
}

// DefaultHysteresis returns the stock thresholds.
func DefaultHysteresis() Hysteresis {
	return Hysteresis{StrictEnter: 20, StrictExit: 25, EcoEnter: 40, EcoExit: 45}
}

// Validate enforces exit > enter for both bands and strict below eco.
func (h Hysteresis) Validate() error {
	for _, field := range []struct {
		name  string
		value int
	}{
		{"strict_enter", h.StrictEnter},
		{"strict_exit", h.StrictExit},
		{"eco_enter", h.EcoEnter},
		{"eco_exit", h.EcoExit},
	} {
		if field.value < 0 || field.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100", field.name)
		}
	}
	if h.StrictExit <= h.StrictEnter {
		return errors.New("strict_exit must be greater than strict_enter")
	}
	if h.EcoExit <= h.EcoEnter {
		return errors.New("eco_exit must be greater than eco_enter")
	}
	if h.StrictEnter >= h.EcoEnter {
		return errors.New("strict_enter must be less than eco_enter")
	}
	return nil
}

// ChooseProfile picks the target profile for status given the last applied
// one.
func ChooseProfile(status power.Status, last encoding.ProfileName, h Hysteresis) encoding.ProfileName {
	if status.OnAC != nil && *status.OnAC {
		return encoding.ProfileBalanced
	}
	if status.Percent == nil {
		if last == "" || last == encoding.ProfileOff {
			return encoding.ProfileBalanced
		}
		return last
	}
	p := *status.Percent

	if last == encoding.ProfileEcoStrict {
		if p > h.StrictExit {
			if p < h.EcoEnter {
				return encoding.ProfileEco
			}
			return encoding.ProfileBalanced
		}
		return encoding.ProfileEcoStrict
	}
	if p <= h.StrictEnter {
		return encoding.ProfileEcoStrict
	}
	if last == encoding.ProfileEco {
		if p > h.EcoExit {
			return encoding.ProfileBalanced
		}
		return encoding.ProfileEco
	}
	if p <= h.EcoEnter {
		return encoding.ProfileEco
	}
	return encoding.ProfileBalanced
}

// Gate carries the inputs of the switch decision.
type Gate struct {
	Target       encoding.ProfileName
	Last         encoding.ProfileName
	LastSwitchAt time.Time
	Cooldown     time.Duration
	Override     encoding.ProfileName
}

// ShouldSwitch reports whether the daemon may apply Target now.
func ShouldSwitch(g Gate, now time.Time) bool {
	return reason(g, now) == ReasonSwitch
}

// CooldownRemaining is zero once the cooldown since the last switch has
// elapsed or no switch has been recorded.
func (g Gate) CooldownRemaining(now time.Time) time.Duration {
	if g.LastSwitchAt.IsZero() || g.Cooldown <= 0 {
		return 0
	}
	remaining := g.Cooldown - now.Sub(g.LastSwitchAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reason explains a Decision.
type Reason string

const (
	ReasonSwitch    Reason = "switch"
	ReasonOverride  Reason = "override"
	ReasonUnchanged Reason = "unchanged"
	ReasonCooldown  Reason = "cooldown"
)

func reason(g Gate, now time.Time) Reason {
	switch {
	case g.Override != "":
		return ReasonOverride
	case g.Target == g.Last:
		return ReasonUnchanged
	case g.CooldownRemaining(now) > 0:
		return ReasonCooldown
	}
	return ReasonSwitch
}

// Decision is one policy evaluation.
type Decision struct {
	Target            encoding.ProfileName `json:"target"`
	Last              encoding.ProfileName `json:"last"`
	Switch            bool                 `json:"switch"`
	Reason            Reason               `json:"reason"`
	CooldownRemaining time.Duration        `json:"cooldown_remaining"`
}

// Evaluate combines ChooseProfile and the switch gate.
func Evaluate(status power.Status, last encoding.ProfileName, lastSwitchAt time.Time, cooldown time.Duration, override encoding.ProfileName, h Hysteresis, now time.Time) Decision {
	gate := Gate{
		Target:       ChooseProfile(status, last, h),
		Last:         last,
		LastSwitchAt: lastSwitchAt,
		Cooldown:     cooldown,
		Override:     override,
	}
	r := reason(gate, now)
	return Decision{
		Target:            gate.Target,
		Last:              last,
		Switch:            r == ReasonSwitch,
		Reason:            r,
		CooldownRemaining: gate.CooldownRemaining(now),
	}
}
