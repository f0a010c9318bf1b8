package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/daemonctl"
	"hyprwall/internal/daemonrun"
	"hyprwall/internal/preflight"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopGrace    = 5 * time.Second
)

func newAutoCommand(ctx *commandContext) *cobra.Command {
	var once bool
	var status bool

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Follow the power state and switch encode profiles",
		Long: "Run the auto-power daemon in the foreground. It re-evaluates the battery every poll\n" +
			"interval and re-encodes the current wallpaper when the policy picks a new profile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status {
				return runAutoStatus(cmd, ctx)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.RequireBinaries(cfg); err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: verboseLevel(ctx),
				Once:     once,
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Evaluate the policy once and exit")
	cmd.Flags().BoolVar(&status, "status", false, "Show the auto-power state instead of running")

	cmd.AddCommand(newAutoToggleCommand(ctx, "on", true))
	cmd.AddCommand(newAutoToggleCommand(ctx, "off", false))
	cmd.AddCommand(newAutoStartCommand(ctx))
	cmd.AddCommand(newAutoStopCommand(ctx))
	return cmd
}

func newAutoStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the auto-power daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.RequireBinaries(cfg); err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cfg, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				Verbose:    ctx.verbose(),
			}, daemonStartTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Auto daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Auto daemon started (pid %d); log: %s\n", result.PID, cfg.DaemonLogFile())
			}
			return nil
		},
	}
}

func newAutoStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background auto-power daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.Stop(cfg, daemonStopGrace)
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
				fmt.Fprintln(out, "Auto daemon is not running")
				return nil
			case err != nil:
				return err
			case result.Forced:
				fmt.Fprintf(out, "Auto daemon killed (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Auto daemon stopped (pid %d)\n", result.PID)
			}
			return nil
		},
	}
}

func verboseLevel(ctx *commandContext) string {
	if ctx.verbose() {
		return "debug"
	}
	return ""
}

func newAutoToggleCommand(ctx *commandContext, use string, enabled bool) *cobra.Command {
	short := "Enable auto-power for the current session"
	if !enabled {
		short = "Disable auto-power for the current session"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				sess, err := svc.SetAutoPower(cmd.Context(), enabled)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sess)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Auto-power %s\n", use)
				return nil
			})
		},
	}
}

func runAutoStatus(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withService(func(svc *api.Service) error {
		report, err := svc.AutoStatus()
		if err != nil {
			return err
		}
		cfg := svc.Config()
		running, runErr := preflight.DaemonRunning(cfg.DaemonLockFile())
		if ctx.jsonOutput() {
			return writeJSON(cmd, struct {
				api.AutoReport
				DaemonRunning bool `json:"daemon_running"`
			}{report, running})
		}

		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		printLines(out, renderSectionHeader("Auto-power", colorize)...)
		fmt.Fprintln(out, renderField("Enabled", yesNo(report.Enabled)))
		switch {
		case runErr != nil:
			fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, runErr.Error(), colorize))
		case running:
			fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running", colorize))
		default:
			fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
		}
		fmt.Fprintln(out, renderField("Profile", profileLabel(report.LastProfile)))
		if report.Override != "" {
			fmt.Fprintln(out, renderField("Override", profileLabel(report.Override)))
		}
		fmt.Fprintln(out, renderField("Last switch", formatTime(report.LastSwitchAt)))
		fmt.Fprintln(out, renderField("Cooldown", formatDuration(report.Cooldown)))
		printPower(out, report.Power, colorize)
		printDecision(out, report.Decision, colorize)
		return nil
	})
}
