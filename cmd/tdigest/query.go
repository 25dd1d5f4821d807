package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tdigest/internal/export"
)

type queryFlags struct {
	quantiles []string
	values    []string
	series    string
	parallel  bool
}

func newQueryCmd(a *app) *cobra.Command {
	f := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query <snapshot>",
		Short: "Evaluate quantiles and CDFs of stored digests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd.OutOrStdout(), args[0], f)
		},
	}

	cmd.Flags().StringSliceVarP(&f.quantiles, "q", "q", []string{"0.5", "0.9", "0.99"}, "quantiles to evaluate")
	cmd.Flags().StringSliceVarP(&f.values, "x", "x", nil, "values whose CDF to evaluate")
	cmd.Flags().StringVar(&f.series, "series", "", "only query this series")
	cmd.Flags().BoolVarP(&f.parallel, "parallel", "p", false, "evaluate batches on the worker pool")
	return cmd
}

func (a *app) runQuery(stdout io.Writer, path string, f *queryFlags) error {
	qs, err := parseFloats(f.quantiles)
	if err != nil {
		return err
	}
	xs, err := parseFloats(f.values)
	if err != nil {
		return err
	}

	entries, err := export.ReadFile(path)
	if err != nil {
		return err
	}
	opts, err := a.digestOptions()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tFUNC\tARG\tRESULT")

	matched := 0
	for _, e := range entries {
		if f.series != "" && e.Series != f.series {
			continue
		}
		matched++

		d, err := export.Restore(e, opts...)
		if err != nil {
			return err
		}

		fmt.Fprintf(tw, "%s\tweight\t-\t%s\n", e.Series, format(d.TotalWeight()))
		if d.TotalWeight() == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\tmin\t-\t%s\n", e.Series, format(d.Min()))
		fmt.Fprintf(tw, "%s\tmax\t-\t%s\n", e.Series, format(d.Max()))
		fmt.Fprintf(tw, "%s\tmean\t-\t%s\n", e.Series, format(d.Mean()))

		quantiles, err := d.Quantiles(qs, f.parallel)
		if err != nil {
			return fmt.Errorf("series %q: %w", e.Series, err)
		}
		for i, q := range qs {
			fmt.Fprintf(tw, "%s\tquantile\t%s\t%s\n", e.Series, format(q), format(quantiles[i]))
		}

		if len(xs) == 0 {
			continue
		}
		cdfs, err := d.CDFs(xs, f.parallel)
		if err != nil {
			return fmt.Errorf("series %q: %w", e.Series, err)
		}
		for i, x := range xs {
			fmt.Fprintf(tw, "%s\tcdf\t%s\t%s\n", e.Series, format(x), format(cdfs[i]))
		}
	}

	if f.series != "" && matched == 0 {
		return fmt.Errorf("series %q not found in %s", f.series, path)
	}
	return tw.Flush()
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
