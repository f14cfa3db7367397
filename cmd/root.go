package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flushfinder/flushfinder/internal/config"
	"github.com/flushfinder/flushfinder/internal/instrumentation"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/server"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI and telemetry.
func SetVersion(v string) {
	version = v
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "flushfinder",
		Short: "Finds restrooms in University of Michigan buildings",
		Long: `flushfinder queries the U-M Buildings API for every building and its rooms,
picks out the restrooms by room type, and writes a report with one line per
Ann Arbor building: address, coordinates and restroom count.

Credentials are read from FLUSHFINDER_CLIENT_ID and FLUSHFINDER_CLIENT_SECRET,
a .env file, or the file given with --config.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(`{{printf "flushfinder version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (default: text)")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run, e.g. :9090")

	cmd.AddCommand(newReportCmd(opts))
	cmd.AddCommand(newRoomsCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If no subcommand is provided, run the report command by default
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"report"}
	}

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		cancel()
		os.Exit(1)
	}
}

// environment is everything a command needs once flags and config are resolved.
type environment struct {
	cfg           *config.Config
	logger        *slog.Logger
	provider      *instrumentation.Provider
	metricsServer *server.MetricsServer
}

// setup loads configuration, builds the logger and starts instrumentation.
// apply lets the calling command copy its own flags into the config before
// validate runs. The returned environment must be closed.
func setup(ctx context.Context, cmd *cobra.Command, opts *globalOptions, apply func(*config.Config), validate func(*config.Config) error) (*environment, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if apply != nil {
		apply(cfg)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	env := &environment{cfg: cfg, logger: logger, provider: provider}

	if opts.metricsAddr != "" {
		env.metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logging.NewSlogAdapter(logger),
		})
		if err == nil {
			err = env.metricsServer.Start()
		}
		if err != nil {
			env.metricsServer = nil
			return nil, errors.Join(fmt.Errorf("failed to start metrics server: %w", err), provider.Shutdown(ctx))
		}
		env.metricsServer.Health().SetReady(true)
	}

	return env, nil
}

// Close stops the metrics server and flushes telemetry.
func (e *environment) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if e.metricsServer != nil {
		errs = append(errs, e.metricsServer.Shutdown(ctx))
	}
	errs = append(errs, e.provider.Shutdown(ctx))
	return errors.Join(errs...)
}

// closeEnvironment closes env and logs rather than returns shutdown errors.
func closeEnvironment(env *environment) {
	if err := env.Close(); err != nil {
		env.logger.Warn("shutdown incomplete", logging.Err(err))
	}
}

// logRunResult emits the structured completion line of a command.
func logRunResult(logger *slog.Logger, operation string, start time.Time, err error) {
	logger = logging.WithOperation(logger, operation)
	if err != nil {
		logger.Error("run failed",
			logging.Status(logging.StatusError),
			logging.Err(err),
			logging.KeyDuration, time.Since(start))
		return
	}
	logger.Info("run complete",
		logging.Status(logging.StatusSuccess),
		logging.KeyDuration, time.Since(start))
}

// openOutput creates or truncates the file at path.
func openOutput(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}
