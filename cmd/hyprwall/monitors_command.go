package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
)

func newMonitorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "monitors",
		Short: "List Hyprland monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				report, err := svc.Monitors(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				rows := make([][]string, 0, len(report.Monitors))
				for _, m := range report.Monitors {
					marks := ""
					if m.Focused {
						marks = "focused"
					}
					if m.Name == report.Reference {
						if marks != "" {
							marks += ", "
						}
						marks += "reference"
					}
					rows = append(rows, []string{
						m.Name,
						fmt.Sprintf("%dx%d", m.Width, m.Height),
						fmt.Sprintf("%.2f Hz", m.RefreshRate),
						marks,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{leftCol("Monitor"), rightCol("Resolution"), rightCol("Refresh"), leftCol("Notes")},
					rows,
				))
				return nil
			})
		},
	}
}
