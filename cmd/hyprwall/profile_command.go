package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/encoding"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or pin the encode profile",
	}
	cmd.AddCommand(newProfileListCommand(ctx))
	cmd.AddCommand(newProfileSetCommand(ctx))
	cmd.AddCommand(newProfileAutoCommand(ctx))
	return cmd
}

func newProfileListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List encode profiles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := encoding.Profiles()
			if ctx.jsonOutput() {
				return writeJSON(cmd, profiles)
			}
			rows := make([][]string, 0, len(profiles)+1)
			for _, p := range profiles {
				rows = append(rows, []string{string(p.Name), strconv.Itoa(p.FPS), strconv.Itoa(p.Quality), p.Preset})
			}
			rows = append(rows, []string{string(encoding.ProfileOff), "source", "-", "-"})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{leftCol("Profile"), rightCol("FPS"), rightCol("Quality"), leftCol("Preset")},
				rows,
			))
			return nil
		},
	}
}

func newProfileSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <profile>",
		Short: "Re-encode the current wallpaper with a profile and pin it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := encoding.ParseProfileName(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				result, err := svc.ApplyProfile(cmd.Context(), target, api.ApplyOptions{Pin: true})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Profile: %s (was %s)\n", profileLabel(result.Profile), profileLabel(result.Previous))
				if result.Session.AutoPower {
					fmt.Fprintln(out, "Pinned; the auto daemon keeps it until `hyprwall profile auto`")
				}
				fmt.Fprintln(out, renderPlanTable(result.Monitors))
				return nil
			})
		},
	}
}

func newProfileAutoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Clear a pinned profile so the power policy decides again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				sess, err := svc.ClearOverride(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sess)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Profile override cleared")
				if !sess.AutoPower {
					fmt.Fprintln(out, "Auto-power is off; enable it with `hyprwall auto on`")
				}
				return nil
			})
		},
	}
}
