package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flushfinder/flushfinder/internal/config"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/server"
	"github.com/flushfinder/flushfinder/internal/store"
)

type serveOptions struct {
	addr       string
	sqlitePath string
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve buildings, restrooms and reviews from the SQLite export",
		Long: `Serve the database written by "report --sqlite" over HTTP:

  GET  /building              every building, newest first
  GET  /rooms?brn=BRN         the restrooms of one building
  GET  /rooms/{id}/summary    review count, average stars, latest review
  GET  /reviews/{roomId}      the reviews of one room, newest first
  POST /reviews               body: {"room_id", "user_id", "stars"} with 1-5 stars

Missing tables are created; existing data is kept. API credentials are not
needed. The server runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", config.DefaultServeAddr, "Address to serve the API on. Can also use FLUSHFINDER_SERVE_ADDR env var.")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite database to serve. Can also use FLUSHFINDER_SQLITE env var.")

	return cmd
}

func runServe(cmd *cobra.Command, global *globalOptions, opts *serveOptions) (err error) {
	ctx := cmd.Context()

	env, err := setup(ctx, cmd, global, func(cfg *config.Config) {
		if cmd.Flags().Changed("addr") {
			cfg.Serve.Addr = opts.addr
		}
		if cmd.Flags().Changed("sqlite") {
			cfg.Report.SQLitePath = opts.sqlitePath
		}
	}, (*config.Config).ValidateServe)
	if err != nil {
		return err
	}
	defer closeEnvironment(env)

	start := time.Now()
	defer func() { logRunResult(env.logger, "serve", start, err) }()

	db, err := store.Open(ctx, env.cfg.Report.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Init(ctx); err != nil {
		return err
	}

	adapter := logging.NewSlogAdapter(env.logger)
	apiServer, err := server.NewAPIServer(server.APIServerConfig{
		Addr:   env.cfg.Serve.Addr,
		Store:  db,
		Logger: adapter,
	})
	if err != nil {
		return err
	}
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	apiServer.Health().SetReady(true)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", env.cfg.Report.SQLitePath, apiServer.Addr())

	<-ctx.Done()
	env.logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
