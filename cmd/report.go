package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flushfinder/flushfinder/internal/config"
	"github.com/flushfinder/flushfinder/internal/geocode"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/report"
	"github.com/flushfinder/flushfinder/internal/store"
)

type reportOptions struct {
	filterFlags
	output     string
	workers    int
	sqlitePath string
	geocoder   string
}

func newReportCmd(global *globalOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the restroom report for every Ann Arbor building",
		Long: `Fetch every building, skip those outside Ann Arbor or on the Dearborn campus,
geocode each remaining address, count its restrooms, and write one tuple per
building to the output file, sorted by building name.

With --workers greater than 1, buildings are processed concurrently and a
failing building is left out instead of aborting the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", config.DefaultReportPath, "Report file, overwritten on each run")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "Buildings processed concurrently; 1 runs sequentially")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "Also export reported buildings and restrooms to this SQLite database")
	cmd.Flags().StringVar(&opts.geocoder, "geocoder", config.ProviderNominatim, "Geocoding provider: nominatim, google or none")
	opts.filterFlags.register(cmd)

	return cmd
}

func (o *reportOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Report.OutputPath = o.output
	}
	if flags.Changed("workers") {
		cfg.Report.Workers = o.workers
	}
	if flags.Changed("sqlite") {
		cfg.Report.SQLitePath = o.sqlitePath
	}
	if flags.Changed("geocoder") {
		cfg.Geocode.Provider = o.geocoder
	}
	o.filterFlags.apply(cmd, cfg)
}

func runReport(cmd *cobra.Command, global *globalOptions, opts *reportOptions) (err error) {
	ctx := cmd.Context()

	env, err := setup(ctx, cmd, global,
		func(cfg *config.Config) { opts.apply(cmd, cfg) },
		(*config.Config).Validate)
	if err != nil {
		return err
	}
	defer closeEnvironment(env)

	var summary report.Summary
	start := time.Now()
	defer func() {
		logger := env.logger
		if summary.RunID != "" {
			logger = logging.WithRunID(logger, summary.RunID)
		}
		logRunResult(logger, "report", start, err)
	}()

	cfg := env.cfg
	adapter := logging.NewSlogAdapter(env.logger)
	metrics := env.provider.Metrics()

	geocoder, err := geocode.New(cfg.Geocode,
		geocode.WithMetrics(metrics),
		geocode.WithLogger(adapter),
	)
	if err != nil {
		return err
	}

	runnerOpts := []report.Option{
		report.WithWorkers(cfg.Report.Workers),
		report.WithExcludedCampus(cfg.Report.ExcludedCampus),
		report.WithRequiredCity(cfg.Report.RequiredCity),
		report.WithMetrics(metrics),
		report.WithLogger(adapter),
	}

	token, err := env.authenticate(ctx)
	if err != nil {
		return err
	}

	// the previous export survives a failed authentication
	if cfg.Report.SQLitePath != "" {
		db, err := store.Open(ctx, cfg.Report.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Reset(ctx); err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, report.WithSink(db))
	}

	out, err := openOutput(cfg.Report.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	runner := report.NewRunner(env.facilitiesClient(), geocoder, env.restroomFilter(), runnerOpts...)
	summary, err = runner.Run(ctx, token, out)
	if err != nil {
		return fmt.Errorf("report run %s: %w", summary.RunID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d buildings to %s (%d skipped, %d failed)\n",
		summary.Written, cfg.Report.OutputPath, summary.Skipped, summary.Failed)
	return nil
}
