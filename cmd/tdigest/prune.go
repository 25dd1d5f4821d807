package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tdigest/internal/export"
)

func newPruneCmd(a *app) *cobra.Command {
	var (
		dir    string
		maxAge time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete exported snapshots older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Export.Dir
			}
			if maxAge == 0 {
				maxAge = a.cfg.Export.Retention
			}
			if maxAge <= 0 {
				return fmt.Errorf("no retention configured: set export.retention or --max-age")
			}

			result := export.Prune(dir, maxAge, time.Now(), dryRun)
			verb := "deleted"
			if dryRun {
				verb = "would delete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d files (%s), kept %d\n",
				verb, result.FilesDeleted, export.FormatBytes(result.BytesFreed), result.FilesSkipped)
			return result.Err()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "snapshot directory (default from config)")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "delete snapshots older than this (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report what would be deleted")
	return cmd
}
