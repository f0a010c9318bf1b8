package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hyprwall/internal/config"
	"hyprwall/internal/deps"
	"hyprwall/internal/encoding"
	"hyprwall/internal/hypr"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// CapabilityProber reports usable hardware encoders.
type CapabilityProber interface {
	Capabilities(ctx context.Context) encoding.Capabilities
}

// MonitorLister lists compositor outputs.
type MonitorLister interface {
	Monitors(ctx context.Context) ([]hypr.Monitor, error)
}

// RunAll executes the directory, compositor, power and encoder checks.
// Nil collaborators skip their check.
func RunAll(ctx context.Context, cfg *config.Config, monitors MonitorLister, prober CapabilityProber) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Optimized directory", cfg.OptimizedDir()),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if monitors != nil {
		results = append(results, CheckMonitors(ctx, monitors))
	}
	results = append(results, CheckPowerSupply(cfg.Power.SupplyDir))
	if prober != nil {
		results = append(results, CheckEncoders(ctx, prober, encoding.Codec(cfg.Encoding.Codec), encoding.Encoder(cfg.Encoding.Encoder)))
	}
	return results
}

// RequireBinaries fails when a required program is missing.
func RequireBinaries(cfg *config.Config) error {
	missing := deps.MissingRequired(CheckSystemDeps(cfg))
	if len(missing) == 0 {
		return nil
	}
	details := make([]string, 0, len(missing))
	for _, m := range missing {
		details = append(details, fmt.Sprintf("%s: %s", m.Name, m.Detail))
	}
	return errors.New("missing required programs: " + strings.Join(details, "; "))
}
