package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "library <directory>",
		Short: "List supported videos and images in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				items, err := svc.Library(args[0], recursive)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No supported media found")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{item.Path, displayName(string(item.Kind)), humanBytes(item.Size)})
				}
				fmt.Fprintln(out, renderTable(
					[]column{leftCol("File"), leftCol("Kind"), rightCol("Size")},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	return cmd
}
