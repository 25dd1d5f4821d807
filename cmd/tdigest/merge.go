package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/export"
)

func newMergeCmd(a *app) *cobra.Command {
	var out, series string

	cmd := &cobra.Command{
		Use:   "merge <snapshot>...",
		Short: "Merge every digest stored in the given files into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMerge(cmd.OutOrStdout(), args, out, series)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output snapshot path (.pb or .parquet)")
	cmd.Flags().StringVar(&series, "series", "", "series name of the merged digest (default: output file name)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) runMerge(stdout io.Writer, inputs []string, out, series string) error {
	if series == "" {
		series = export.SeriesFromPath(out)
	}

	var parts []*digest.Digest
	for _, path := range inputs {
		entries, err := export.ReadFile(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			d, err := export.Restore(e)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parts = append(parts, d)
		}
	}

	merged, err := a.newDigest()
	if err != nil {
		return err
	}
	if err := merged.Absorb(parts...); err != nil {
		return err
	}

	entry := export.Entry{Series: series, Snapshot: merged.Snapshot()}
	if err := export.WriteFile(out, []export.Entry{entry}, a.exportOptions()); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: merged %d digests, weight=%g centroids=%d\n",
		out, len(parts), merged.TotalWeight(), merged.Count())
	return nil
}
