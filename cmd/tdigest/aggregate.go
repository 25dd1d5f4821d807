package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tdigest/internal/aggregate"
	"github.com/xtxerr/tdigest/internal/export"
	"github.com/xtxerr/tdigest/internal/logging"
)

type aggregateFlags struct {
	bucket    time.Duration
	dir       string
	format    string
	noSave    bool
	quantiles []string
}

func newAggregateCmd(a *app) *cobra.Command {
	f := &aggregateFlags{}

	cmd := &cobra.Command{
		Use:   "aggregate [file...]",
		Short: "Aggregate timestamped samples per series and time bucket",
		Long: `Reads "series,timestamp_ms,value[,weight]" lines, keeps one estimator per
series and bucket, prints a summary of every bucket and exports the digest
of each series' latest bucket to --dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAggregate(cmd, args, f)
		},
	}

	cmd.Flags().DurationVar(&f.bucket, "bucket", 0, "bucket width (default from config)")
	cmd.Flags().StringVar(&f.dir, "dir", "", "export directory (default from config)")
	cmd.Flags().StringVar(&f.format, "format", "", "export format: pb or parquet (default from config)")
	cmd.Flags().BoolVar(&f.noSave, "no-export", false, "only print the summary")
	cmd.Flags().StringSliceVarP(&f.quantiles, "q", "q", nil, "also print these quantiles of each series' latest bucket")
	return cmd
}

func (a *app) runAggregate(cmd *cobra.Command, inputs []string, f *aggregateFlags) error {
	cfg := a.cfg
	if f.bucket == 0 {
		f.bucket = cfg.Aggregate.BucketSize
	}
	if f.dir == "" {
		f.dir = cfg.Export.Dir
	}
	if f.format == "" {
		f.format = cfg.Export.Format
	}

	exportFormat, err := export.ParseFormat(f.format)
	if err != nil {
		return err
	}
	qs, err := parseFloats(f.quantiles)
	if err != nil {
		return err
	}
	backend, err := aggregate.ParseBackend(cfg.Aggregate.Backend)
	if err != nil {
		return err
	}
	digestOpts, err := a.digestOptions()
	if err != nil {
		return err
	}

	m, err := aggregate.NewManager(aggregate.Options{
		BucketSize:    f.bucket,
		Backend:       backend,
		Compression:   cfg.Digest.Compression,
		DigestOptions: digestOpts,
		Accuracy:      cfg.Aggregate.DDSketchAccuracy,
	})
	if err != nil {
		return err
	}

	err = eachInput(cmd.InOrStdin(), inputs, func(r io.Reader) error {
		return scanSamples(r, m.ProcessBatch)
	})
	if err != nil {
		return err
	}

	var paths []string
	if !f.noSave && backend == aggregate.BackendTDigest {
		paths, err = m.ExportAll(cmd.Context(), f.dir, exportFormat, a.exportOptions(), cfg.Export.Concurrency)
		if err != nil {
			return err
		}
		if cfg.Export.Retention > 0 {
			if err := export.Prune(f.dir, cfg.Export.Retention, time.Now(), false).Err(); err != nil {
				return err
			}
		}
	}

	if len(qs) > 0 {
		if err := printQuantiles(cmd.OutOrStdout(), m, qs); err != nil {
			return err
		}
	}

	results := m.FlushAll()
	stats := m.Stats()
	logging.Info("aggregation finished",
		"samples", stats.SamplesProcessed,
		"buckets", stats.BucketsCompleted,
		"exported", len(paths))

	return printResults(cmd.OutOrStdout(), results, paths)
}

func printResults(w io.Writer, results []aggregate.Result, paths []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tBUCKET\tCOUNT\tMIN\tP50\tP90\tP99\tMAX")

	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Series,
			r.BucketStartTime().UTC().Format(time.RFC3339),
			r.Count,
			format(r.Min),
			optional(r.P50),
			optional(r.P90),
			optional(r.P99),
			format(r.Max))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, p := range paths {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
	return nil
}

// printQuantiles evaluates qs against the latest bucket of every series.
func printQuantiles(w io.Writer, m *aggregate.Manager, qs []float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tQUANTILE\tVALUE")

	for _, series := range m.Series() {
		for _, q := range qs {
			v, err := m.Quantile(series, q)
			if err != nil {
				return fmt.Errorf("series %q: %w", series, err)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", series, format(q), format(v))
		}
	}
	return tw.Flush()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}
