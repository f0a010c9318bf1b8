package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/deps"
	"hyprwall/internal/hypr"
	"hyprwall/internal/preflight"
)

type doctorReport struct {
	ConfigPath    string             `json:"config_path"`
	ConfigExists  bool               `json:"config_exists"`
	Dependencies  []deps.Status      `json:"dependencies"`
	Checks        []preflight.Result `json:"checks"`
	DaemonRunning bool               `json:"daemon_running"`
}

func (r doctorReport) failed() bool {
	if len(deps.MissingRequired(r.Dependencies)) > 0 {
		return true
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return true
		}
	}
	return false
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check programs, directories, monitors, power supply and encoders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				cfg := svc.Config()
				report := doctorReport{
					ConfigPath:   ctx.configPath,
					ConfigExists: ctx.configExists,
					Dependencies: preflight.CheckSystemDeps(cfg),
				}
				report.Checks = preflight.RunAll(cmd.Context(), cfg, hypr.NewClient(cfg.Binaries.Hyprctl), svc.Selector())
				running, err := preflight.DaemonRunning(cfg.DaemonLockFile())
				if err != nil {
					report.Checks = append(report.Checks, preflight.Result{Name: "Auto daemon", Detail: err.Error()})
				}
				report.DaemonRunning = running

				if ctx.jsonOutput() {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					printDoctorReport(out, report, shouldColorize(out))
				}
				if report.failed() {
					return errors.New("doctor found problems")
				}
				return nil
			})
		},
	}
}

func printDoctorReport(out io.Writer, report doctorReport, colorize bool) {
	printLines(out, renderSectionHeader("Configuration", colorize)...)
	configNote := report.ConfigPath
	if !report.ConfigExists {
		configNote += " (not present; defaults in use)"
	}
	fmt.Fprintln(out, renderField("Config", configNote))

	fmt.Fprintln(out)
	printLines(out, renderSectionHeader("Programs", colorize)...)
	for _, dep := range report.Dependencies {
		kind, message := statusOK, dep.Path
		if !dep.Available {
			kind, message = statusError, dep.Detail
			if dep.Optional {
				kind = statusWarn
			}
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
	}

	fmt.Fprintln(out)
	printLines(out, renderSectionHeader("Checks", colorize)...)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	daemonState := "not running"
	if report.DaemonRunning {
		daemonState = "running"
	}
	fmt.Fprintln(out, renderStatusLine("Auto daemon", statusInfo, daemonState, colorize))
}
