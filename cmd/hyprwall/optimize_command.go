package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
)

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var flags encodeFlags
	var monitor string
	var width, height int

	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Encode a wallpaper into the cache without starting playback",
		Long: "Encode a wallpaper for one resolution. The size comes from --width/--height,\n" +
			"else from --monitor, else from the focused or largest monitor.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (width > 0) != (height > 0) {
				return fmt.Errorf("--width and --height must be given together")
			}
			mode, codec, encoder, profile, err := flags.parse()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				result, err := svc.Optimize(cmd.Context(), api.OptimizeRequest{
					Source:  args[0],
					Monitor: monitor,
					Width:   width,
					Height:  height,
					Profile: profile,
					Mode:    mode,
					Codec:   codec,
					Encoder: encoder,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Path)
				fmt.Fprintln(out, renderField("Cache", cacheLabel(&result)))
				fmt.Fprintln(out, renderField("Key", result.Key))
				fmt.Fprintln(out, renderField("Requested", string(result.Requested)))
				fmt.Fprintln(out, renderField("Chosen", string(result.Chosen)))
				fmt.Fprintln(out, renderField("Used", string(result.Used)))
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&monitor, "monitor", "m", "", "Take the target size from this monitor")
	cmd.Flags().IntVar(&width, "width", 0, "Target width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Target height in pixels")
	return cmd
}
