package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hyprwall/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:       "logs [daemon|player]",
		Short:     "Show the auto-power daemon or wallpaper player log",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"daemon", "player"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := "daemon"
			if len(args) == 1 {
				source = args[0]
			}
			var path string
			switch source {
			case "daemon":
				path = cfg.DaemonLogFile()
			case "player":
				path = cfg.PlayerLogFile()
			default:
				return fmt.Errorf("unknown log %q (want daemon or player)", source)
			}
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(tail) == 0 && lines > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s is empty\n", path)
				}
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = logs.Follow(followCtx, path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 40, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	return cmd
}
