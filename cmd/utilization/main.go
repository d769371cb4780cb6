package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bugfreev587/openshift-utilization/internal/api"
	"github.com/bugfreev587/openshift-utilization/internal/app"
	"github.com/bugfreev587/openshift-utilization/internal/config"
	"github.com/bugfreev587/openshift-utilization/internal/logging"
	"github.com/bugfreev587/openshift-utilization/internal/observability"
)

func main() {
	_ = godotenv.Load() // load .env file if exists

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "utilization",
		Short:         "Per-node, per-namespace OpenShift utilization from the reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// If --config is not given, UTILIZATION_CONFIG_FILE is used; with neither,
	// configuration comes from the environment only.
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("UTILIZATION_CONFIG_FILE"), "path to a YAML config file")

	root.AddCommand(newRunCmd(&configPath), newServeCmd(&configPath))
	return root
}

func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.AuthToken == "" {
		logger.Warn("auth_token is empty; set UTILIZATION_AUTH_TOKEN or REPORT_API_TOKEN")
	}
	logger.Debug("configuration loaded", zap.String("config", cfg.Redacted()))
	return cfg, logger, nil
}

func newRunCmd(configPath *string) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate one report and send it to the configured sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cmd.Flags().Changed("output") {
				cfg.Output.Path = output
			}
			if cmd.Flags().Changed("format") {
				cfg.Output.Format = format
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			backends, err := app.OpenBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer backends.Close()

			runner, err := app.NewRunner(cfg, app.NewClient(cfg, logger), app.BuildSenders(cfg, backends), observability.NewRecorder(), logger)
			if err != nil {
				return err
			}
			_, err = runner.RunOnce(ctx)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this path (- for stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "report format: json or yaml")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Aggregate on an interval and serve the latest report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.ServeInterval <= 0 {
				return fmt.Errorf("serve_interval must be positive, got %v", cfg.ServeInterval)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			backends, err := app.OpenBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer backends.Close()

			recorder := observability.NewRecorder()
			runner, err := app.NewRunner(cfg, app.NewClient(cfg, logger), app.BuildSenders(cfg, backends), recorder, logger)
			if err != nil {
				return err
			}
			cache := &api.ReportCache{}
			runner.OnReport = cache.Set

			// keep interface values nil when a backend is disabled
			var tsHealth api.DBHealthChecker
			if backends.Timescale != nil {
				tsHealth = backends.Timescale
			}
			var redisHealth api.RedisHealthChecker
			if backends.Redis != nil {
				redisHealth = backends.Redis
			}
			server := api.NewServer(&cfg.Server, cache, tsHealth, redisHealth, recorder.Registry(), logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Run()
			}()
			logger.Info("server started", zap.String("host", cfg.Server.Host), zap.String("port", cfg.Server.Port))

			loopDone := runner.Start(ctx, cfg.ServeInterval)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
				logger.Info("shutting down server")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server start: %w", err)
				}
			}
			cancel()
			// sinks and backends must outlive an in-flight run
			<-loopDone

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server forced to shutdown", zap.Error(err))
			}
			logger.Info("server exited")
			return nil
		},
	}
}
