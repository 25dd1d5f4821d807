package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/export"
	"github.com/xtxerr/tdigest/internal/logging"
)

type ingestFlags struct {
	out      string
	series   string
	weighted bool
	appendTo bool
}

func newIngestCmd(a *app) *cobra.Command {
	f := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Build a digest from numbers, one per line",
		Long: `Reads one number per line from the given files, or stdin, and writes the
resulting digest to --out. The extension of --out selects the format:
.pb holds one digest, .parquet holds one row per series.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd.InOrStdin(), cmd.OutOrStdout(), args, f)
		},
	}

	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output snapshot path (.pb or .parquet)")
	cmd.Flags().StringVar(&f.series, "series", "", "series name stored with the digest (default: output file name)")
	cmd.Flags().BoolVarP(&f.weighted, "weighted", "w", false, "lines hold value,weight pairs")
	cmd.Flags().BoolVar(&f.appendTo, "append", false, "fold into the digest already stored at --out")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) runIngest(stdin io.Reader, stdout io.Writer, inputs []string, f *ingestFlags) error {
	if f.series == "" {
		f.series = export.SeriesFromPath(f.out)
	}

	d, err := a.startingDigest(f)
	if err != nil {
		return err
	}

	err = eachInput(stdin, inputs, func(r io.Reader) error {
		return scanValues(r, f.weighted, d.AppendWeighted)
	})
	if err != nil {
		return err
	}

	entry := export.Entry{Series: f.series, Snapshot: d.Snapshot()}
	if err := export.WriteFile(f.out, []export.Entry{entry}, a.exportOptions()); err != nil {
		return err
	}

	logging.Info("digest written",
		"path", f.out,
		"series", f.series,
		"weight", d.TotalWeight(),
		"centroids", d.Count())
	fmt.Fprintf(stdout, "%s: weight=%g centroids=%d\n", f.out, d.TotalWeight(), d.Count())
	return nil
}

// startingDigest returns an empty digest, or with --append the digest of
// the matching series already stored at the output path.
func (a *app) startingDigest(f *ingestFlags) (*digest.Digest, error) {
	d, err := a.newDigest()
	if err != nil {
		return nil, err
	}
	if !f.appendTo {
		return d, nil
	}

	if _, err := os.Stat(f.out); os.IsNotExist(err) {
		return d, nil
	}
	entries, err := export.ReadFile(f.out)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Series != f.series {
			continue
		}
		prev, err := export.Restore(e)
		if err != nil {
			return nil, err
		}
		if err := d.Absorb(prev); err != nil {
			return nil, err
		}
		return d, nil
	}
	return d, nil
}
