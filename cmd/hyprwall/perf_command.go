package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/perf"
)

func newPerfCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "perf",
		Short: "Sample CPU, memory, temperature and power while wallpapers play",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				status, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				var targets []perf.Target
				for _, m := range status.Player.Monitors {
					if m.Running && m.IsPlayer {
						targets = append(targets, perf.Target{Monitor: m.Monitor, PID: m.PID})
					}
				}
				sampler := perf.New(perf.Options{Interval: interval, Logger: ctx.logger()})
				report, err := sampler.Sample(cmd.Context(), targets)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, struct {
						perf.Report
						Profile string `json:"profile,omitempty"`
					}{report, profileFromStatus(status)})
				}
				printPerfReport(cmd.OutOrStdout(), report, profileFromStatus(status))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", perf.DefaultInterval, "Sampling window")
	return cmd
}

func profileFromStatus(status api.StatusReport) string {
	if status.Session == nil {
		return ""
	}
	return string(status.Session.LastProfile)
}

func printPerfReport(out io.Writer, report perf.Report, profile string) {
	if profile != "" {
		fmt.Fprintln(out, renderField("Profile", displayName(profile)))
	}
	if len(report.Players) == 0 {
		fmt.Fprintln(out, "No wallpaper players running")
	} else {
		rows := make([][]string, 0, len(report.Players))
		for _, p := range report.Players {
			rss := "-"
			if p.RSSBytes != nil {
				rss = humanBytes(int64(*p.RSSBytes))
			}
			rows = append(rows, []string{
				p.Monitor,
				fmt.Sprint(p.PID),
				fmt.Sprint(p.Processes),
				formatFloat(p.CPUPercent, "%.1f%%"),
				rss,
				orDash(p.Error),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]column{leftCol("Monitor"), rightCol("PID"), rightCol("Procs"), rightCol("CPU"), rightCol("RSS"), leftCol("Error")},
			rows,
		))
	}

	memory := formatFloat(report.MemUsedPercent, "%.1f%%")
	if report.MemUsedBytes != nil {
		memory += fmt.Sprintf(" (%s)", humanBytes(int64(*report.MemUsedBytes)))
	}
	fmt.Fprintln(out, renderField("Window", report.Interval.String()))
	fmt.Fprintln(out, renderField("Host CPU", formatFloat(report.HostCPUPercent, "%.1f%%")))
	fmt.Fprintln(out, renderField("Load (1m)", formatFloat(report.Load1, "%.2f")))
	fmt.Fprintln(out, renderField("System memory", memory))
	fmt.Fprintln(out, renderField("CPU temp", formatFloat(report.CPUTempC, "%.1f °C")))
	fmt.Fprintln(out, renderField("GPU temp", formatFloat(report.GPUTempC, "%.1f °C")))
	fmt.Fprintln(out, renderField("Package power", formatFloat(report.PackageWatts, "%.1f W")))
	gpuBusy := "-"
	if report.GPUBusyPercent != nil {
		gpuBusy = fmt.Sprintf("%d%%", *report.GPUBusyPercent)
	}
	fmt.Fprintln(out, renderField("GPU busy", gpuBusy))
}
