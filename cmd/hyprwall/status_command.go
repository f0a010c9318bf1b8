package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/policy"
	"hyprwall/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show players, the current session and the power policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				report, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				printStatusReport(out, report, shouldColorize(out))
				return nil
			})
		},
	}
}

func printStatusReport(out io.Writer, report api.StatusReport, colorize bool) {
	printLines(out, renderSectionHeader("Players", colorize)...)
	if len(report.Player.Monitors) == 0 {
		fmt.Fprintln(out, renderStatusLine("Wallpaper", statusInfo, "not running", colorize))
	}
	for _, m := range report.Player.Monitors {
		kind, message := statusError, "not running"
		switch {
		case m.Running && m.IsPlayer:
			kind, message = statusOK, fmt.Sprintf("pid %d, %s, %s", m.PID, displayName(string(m.Mode)), filepath.Base(m.File))
		case m.Running:
			kind, message = statusWarn, fmt.Sprintf("pid %d is not an mpvpaper process", m.PID)
		}
		fmt.Fprintln(out, renderStatusLine(m.Monitor, kind, message, colorize))
	}
	if report.Player.Legacy {
		fmt.Fprintln(out, renderStatusLine("State file", statusWarn, "legacy layout; rewritten on the next set", colorize))
	}
	fmt.Fprintln(out, renderField("Player log", report.Player.LogFile))

	fmt.Fprintln(out)
	printLines(out, renderSectionHeader("Session", colorize)...)
	if report.Session == nil {
		fmt.Fprintln(out, renderStatusLine("Session", statusInfo, "none; run hyprwall set", colorize))
	} else {
		printSession(out, *report.Session)
	}

	fmt.Fprintln(out)
	printLines(out, renderSectionHeader("Power", colorize)...)
	printPower(out, report.Power, colorize)
	if report.Decision != nil && report.Session != nil && report.Session.AutoPower {
		printDecision(out, *report.Decision, colorize)
	}
}

func printSession(out io.Writer, sess session.Session) {
	fmt.Fprintln(out, renderField("Source", sess.Source))
	fmt.Fprintln(out, renderField("Reference", orDash(sess.RefMonitor)))
	fmt.Fprintln(out, renderField("Mode", displayName(string(sess.Mode))))
	fmt.Fprintln(out, renderField("Codec", fmt.Sprintf("%s (%s)", sess.Codec, sess.Encoder)))
	fmt.Fprintln(out, renderField("Profile", profileLabel(sess.LastProfile)))
	if sess.HasOverride() {
		fmt.Fprintln(out, renderField("Override", profileLabel(sess.OverrideProfile)))
	}
	fmt.Fprintln(out, renderField("Auto-power", yesNo(sess.AutoPower)))
	fmt.Fprintln(out, renderField("Last switch", formatTime(sess.LastSwitchAt)))
}

func printPower(out io.Writer, report api.PowerReport, colorize bool) {
	kind := statusInfo
	if report.OnAC == nil && report.Percent == nil {
		kind = statusWarn
	}
	message := fmt.Sprintf("%s, battery %s", report.Source, formatPercent(report.Percent))
	fmt.Fprintln(out, renderStatusLine("Supply", kind, message, colorize))
}

func printDecision(out io.Writer, decision policy.Decision, colorize bool) {
	message := fmt.Sprintf("%s (%s)", profileLabel(decision.Target), decision.Reason)
	kind := statusOK
	switch decision.Reason {
	case policy.ReasonSwitch:
		kind = statusWarn
		message = fmt.Sprintf("switch %s -> %s pending", profileLabel(decision.Last), profileLabel(decision.Target))
	case policy.ReasonCooldown:
		kind = statusInfo
		message = fmt.Sprintf("%s wanted, cooldown %s remaining", profileLabel(decision.Target), formatDuration(decision.CooldownRemaining))
	}
	fmt.Fprintln(out, renderStatusLine("Policy", kind, message, colorize))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
