package api

import (
	"time"

	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
	"hyprwall/internal/media"
	"hyprwall/internal/optcache"
	"hyprwall/internal/policy"
	"hyprwall/internal/power"
	"hyprwall/internal/runner"
	"hyprwall/internal/session"
)

// MonitorPlan is what one monitor will play.
type MonitorPlan struct {
	Monitor string     `json:"monitor"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	File    string     `json:"file"`
	Mode    media.Mode `json:"mode"`
	// Optimization is nil when the source plays directly.
	Optimization *optcache.Result `json:"optimization,omitempty"`
}

// SetResult describes a completed set.
type SetResult struct {
	Source   string               `json:"source"`
	Profile  encoding.ProfileName `json:"profile"`
	Monitors []MonitorPlan        `json:"monitors"`
	Session  session.Session      `json:"session"`
}

// ApplyResult describes a profile change.
type ApplyResult struct {
	Profile  encoding.ProfileName `json:"profile"`
	Previous encoding.ProfileName `json:"previous"`
	Pinned   bool                 `json:"pinned"`
	Monitors []MonitorPlan        `json:"monitors"`
	Session  session.Session      `json:"session"`
}

// PowerReport is a power reading with its display source.
type PowerReport struct {
	OnAC    *bool  `json:"on_ac"`
	Percent *int   `json:"percent"`
	Source  string `json:"source"`
}

func newPowerReport(status power.Status) PowerReport {
	return PowerReport{OnAC: status.OnAC, Percent: status.Percent, Source: status.Source()}
}

// StatusReport combines player, session, power and policy state.
type StatusReport struct {
	Player   runner.Status    `json:"player"`
	Session  *session.Session `json:"session,omitempty"`
	Power    PowerReport      `json:"power"`
	Decision *policy.Decision `json:"decision,omitempty"`
}

// AutoReport describes the auto-power state of the session.
type AutoReport struct {
	Enabled      bool                 `json:"enabled"`
	Override     encoding.ProfileName `json:"override,omitempty"`
	LastProfile  encoding.ProfileName `json:"last_profile"`
	LastSwitchAt time.Time            `json:"last_switch_at"`
	Cooldown     time.Duration        `json:"cooldown"`
	Power        PowerReport          `json:"power"`
	Decision     policy.Decision      `json:"decision"`
}

// MonitorsReport lists outputs and the reference pick.
type MonitorsReport struct {
	Monitors  []hypr.Monitor `json:"monitors"`
	Reference string         `json:"reference,omitempty"`
}
