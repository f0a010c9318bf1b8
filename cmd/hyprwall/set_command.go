package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
	"hyprwall/internal/encoding"
	"hyprwall/internal/media"
)

type encodeFlags struct {
	mode    string
	codec   string
	encoder string
	profile string
}

func (f *encodeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "Display mode: auto, fit, cover or stretch")
	cmd.Flags().StringVar(&f.codec, "codec", "", "Output codec: h264, vp9 or av1")
	cmd.Flags().StringVar(&f.encoder, "encoder", "", "Encoder: auto, nvenc, vaapi or cpu")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Encode profile: eco_strict, eco, balanced, quality or off")
}

// parse validates only the flags that were given; empty values fall back
// to the configured defaults inside the service.
func (f *encodeFlags) parse() (media.Mode, encoding.Codec, encoding.Encoder, encoding.ProfileName, error) {
	var (
		mode    media.Mode
		codec   encoding.Codec
		encoder encoding.Encoder
		profile encoding.ProfileName
		err     error
	)
	if strings.TrimSpace(f.mode) != "" {
		if mode, err = media.ParseMode(f.mode); err != nil {
			return "", "", "", "", err
		}
	}
	if strings.TrimSpace(f.codec) != "" {
		if codec, err = encoding.ParseCodec(f.codec); err != nil {
			return "", "", "", "", err
		}
	}
	if strings.TrimSpace(f.encoder) != "" {
		if encoder, err = encoding.ParseEncoder(f.encoder); err != nil {
			return "", "", "", "", err
		}
	}
	if strings.TrimSpace(f.profile) != "" {
		if profile, err = encoding.ParseProfileName(f.profile); err != nil {
			return "", "", "", "", err
		}
	}
	return mode, codec, encoder, profile, nil
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	var flags encodeFlags
	var monitors []string
	var autoPower bool
	var cooldown time.Duration
	var mpvArgs []string

	cmd := &cobra.Command{
		Use:   "set <file-or-directory>",
		Short: "Optimize a wallpaper for each monitor and start playback",
		Long: "Optimize a video or image for every monitor resolution and start one player per monitor.\n" +
			"A directory selects its newest supported file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, codec, encoder, profile, err := flags.parse()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				result, err := svc.SetWallpaper(cmd.Context(), api.SetRequest{
					Source:    args[0],
					Monitors:  monitors,
					Mode:      mode,
					Codec:     codec,
					Encoder:   encoder,
					Profile:   profile,
					AutoPower: autoPower,
					Cooldown:  cooldown,
					ExtraArgs: mpvArgs,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				printSetResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVarP(&monitors, "monitor", "m", nil, "Limit playback to these monitors (repeatable)")
	cmd.Flags().BoolVar(&autoPower, "auto-power", false, "Let the auto daemon switch profiles with the power state")
	cmd.Flags().DurationVar(&cooldown, "cooldown", 0, "Minimum time between automatic profile switches")
	cmd.Flags().StringArrayVar(&mpvArgs, "mpv-arg", nil, "Extra mpv option passed to every player (repeatable)")
	return cmd
}

func printSetResult(out io.Writer, result api.SetResult) {
	fmt.Fprintf(out, "Wallpaper: %s\n", result.Source)
	fmt.Fprintf(out, "Profile:   %s\n", profileLabel(result.Profile))
	if result.Session.AutoPower {
		fmt.Fprintln(out, "Auto-power: on (start `hyprwall auto` to follow the power state)")
	}
	fmt.Fprintln(out, renderPlanTable(result.Monitors))
}

func renderPlanTable(plans []api.MonitorPlan) string {
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			p.Monitor,
			fmt.Sprintf("%dx%d", p.Width, p.Height),
			displayName(string(p.Mode)),
			cacheLabel(p.Optimization),
			encoderLabel(p.Optimization),
			p.File,
		})
	}
	return renderTable(
		[]column{leftCol("Monitor"), rightCol("Size"), leftCol("Mode"), leftCol("Cache"), leftCol("Encoder"), leftCol("File")},
		rows,
	)
}
