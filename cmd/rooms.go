package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flushfinder/flushfinder/internal/config"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/report"
)

type roomsOptions struct {
	filterFlags
	building string
	output   string
}

func newRoomsCmd(global *globalOptions) *cobra.Command {
	opts := &roomsOptions{}

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Write the restrooms of one building as JSON",
		Long: `Fetch the rooms of a single building, keep the restrooms, and write them as
an indented JSON array. The file is overwritten on each run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRooms(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.building, "building", "b", config.DefaultTargetBuildingID, "Building record number")
	cmd.Flags().StringVarP(&opts.output, "output", "o", config.DefaultRoomsPath, "JSON output file")
	opts.filterFlags.register(cmd)

	return cmd
}

func runRooms(cmd *cobra.Command, global *globalOptions, opts *roomsOptions) (err error) {
	ctx := cmd.Context()

	env, err := setup(ctx, cmd, global, func(cfg *config.Config) {
		if cmd.Flags().Changed("building") {
			cfg.Report.TargetBuildingID = opts.building
		}
		if cmd.Flags().Changed("output") {
			cfg.Report.RoomsOutputPath = opts.output
		}
		opts.filterFlags.apply(cmd, cfg)
	}, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer closeEnvironment(env)

	start := time.Now()
	defer func() { logRunResult(env.logger, "rooms", start, err) }()

	cfg := env.cfg
	token, err := env.authenticate(ctx)
	if err != nil {
		return err
	}

	rooms, err := env.facilitiesClient().GetRooms(ctx, token, cfg.Report.TargetBuildingID)
	if err != nil {
		return err
	}
	restrooms := env.restroomFilter().Restrooms(rooms)

	if err := report.WriteRoomsJSON(cfg.Report.RoomsOutputPath, restrooms); err != nil {
		return err
	}

	env.logger.Info("restrooms written",
		logging.Building(cfg.Report.TargetBuildingID),
		"rooms", len(rooms),
		"restrooms", len(restrooms),
		"path", cfg.Report.RoomsOutputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d restrooms of building %s to %s\n",
		len(restrooms), cfg.Report.TargetBuildingID, cfg.Report.RoomsOutputPath)
	return nil
}
