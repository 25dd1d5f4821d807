// tdigest builds, merges and queries t-digest snapshots from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/xtxerr/tdigest/internal/config"
	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/export"
	"github.com/xtxerr/tdigest/internal/logging"
	"github.com/xtxerr/tdigest/internal/metrics"
	"github.com/xtxerr/tdigest/internal/workerpool"
)

// Version is set at build time via ldflags
var Version = "dev"

// app holds the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	metricsOut string

	cfg       *config.Config
	pool      *workerpool.Pool
	registry  *prometheus.Registry
	collector *metrics.Collector
}

func main() {
	a := &app{}
	if err := a.run(a.rootCmd()); err != nil {
		os.Exit(int(errors.ErrorToCode(err)))
	}
}

// run executes the command tree, then releases what setup started even
// when the command failed.
func (a *app) run(root *cobra.Command) error {
	err := root.Execute()
	if terr := a.teardown(); terr != nil && err == nil {
		err = terr
	}
	if err != nil {
		report(err)
	}
	return err
}

// report logs a failed command with its error code.
func report(err error) {
	code := errors.CodeName(errors.ErrorToCode(err))
	if errors.IsValidation(err) {
		logging.Warn("input rejected", "code", code, "error", err)
		return
	}
	logging.Error("command failed", "code", code, "error", err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "tdigest",
		Short:             "tdigest - streaming quantile estimation",
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file path (defaults apply when empty)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	flags.BoolVar(&a.jsonLogs, "json", false, "log as JSON")
	flags.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newIngestCmd(a),
		newQueryCmd(a),
		newMergeCmd(a),
		newAggregateCmd(a),
		newPruneCmd(a),
	)
	return root
}

// setup loads the configuration and starts the shared worker pool.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = a.logLevel
	}
	if a.jsonLogs {
		cfg.Logging.JSON = true
	}
	a.cfg = cfg

	logging.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel(), cfg.Logging.JSON)
	logging.Debug("tdigest starting", "version", Version, "command", cmd.Name())

	a.pool = cfg.NewPool()

	if cfg.Metrics.Enabled || a.metricsOut != "" {
		a.registry = prometheus.NewRegistry()
		a.collector = metrics.New(a.registry, cfg.Metrics.Namespace)
		a.collector.WatchPool(a.pool)
	}
	return nil
}

func (a *app) teardown() error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.metricsOut != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsOut, a.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// digestOptions returns the configured digest options bound to the shared
// pool and, when enabled, the metrics collector.
func (a *app) digestOptions() ([]digest.Option, error) {
	opts, err := a.cfg.DigestOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, digest.WithPool(a.pool))
	if a.collector != nil {
		opts = append(opts, digest.WithObserver(a.collector))
	}
	return opts, nil
}

func (a *app) newDigest() (*digest.Digest, error) {
	opts, err := a.digestOptions()
	if err != nil {
		return nil, err
	}
	return digest.New(a.cfg.Digest.Compression, opts...)
}

func (a *app) exportOptions() export.Options {
	opts := export.DefaultOptions()
	opts.Compression = export.ParseCompressionType(a.cfg.Export.Compression)
	return opts
}
