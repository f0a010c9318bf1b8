package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hyprwall/internal/api"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear optimized wallpapers",
	}
	cmd.AddCommand(newCacheSizeCommand(ctx))
	cmd.AddCommand(newCacheListCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	return cmd
}

func newCacheSizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Show how much space optimized wallpapers use",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				usage, err := svc.CacheUsage()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, usage)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s in %d files across %d entries (%s)\n",
					humanBytes(usage.Bytes), usage.Files, usage.Entries, svc.Config().OptimizedDir())
				return nil
			})
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cache entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				entries, err := svc.CacheEntries()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for i, e := range entries {
					rows = append(rows, []string{
						fmt.Sprint(i + 1),
						e.Key,
						humanBytes(e.Bytes),
						formatTime(e.ModTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{rightCol("#"), leftCol("Key"), rightCol("Size"), leftCol("Modified")},
					rows,
				))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every optimized wallpaper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				removed, err := svc.ClearCache(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, removed)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries (%s)\n", removed.Entries, humanBytes(removed.Bytes))
				return nil
			})
		},
	}
}
