package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/runner"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	var monitor string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop wallpaper players",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				report, err := svc.Stop(cmd.Context(), strings.TrimSpace(monitor))
				if err != nil && !errors.Is(err, runner.ErrStillRunning) {
					return err
				}
				if ctx.jsonOutput() {
					if jsonErr := writeJSON(cmd, report); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				printStopReport(cmd.OutOrStdout(), report)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&monitor, "monitor", "m", "", "Stop only this monitor")
	return cmd
}

func printStopReport(out io.Writer, report runner.StopReport) {
	if len(report.Monitors) == 0 {
		fmt.Fprintln(out, "No wallpaper players recorded")
		return
	}
	for _, m := range report.Monitors {
		switch {
		case !m.Stopped():
			fmt.Fprintf(out, "%s: still running (pids %s)\n", m.Monitor, joinInts(m.Remaining))
		case m.Confirmed:
			fmt.Fprintf(out, "%s: stopped pid %d\n", m.Monitor, m.PID)
		case len(m.Swept) > 0:
			fmt.Fprintf(out, "%s: stopped orphaned players %s\n", m.Monitor, joinInts(m.Swept))
		default:
			fmt.Fprintf(out, "%s: nothing running\n", m.Monitor)
		}
	}
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}
