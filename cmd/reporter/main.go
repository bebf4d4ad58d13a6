package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crypto-report/internal/config"
	"crypto-report/internal/infra/worker"
	"crypto-report/internal/observability/logging"
	"crypto-report/internal/usecase/report"
)

func main() {
	var (
		once       bool
		configFile string
	)
	flag.BoolVar(&once, "once", false, "Send a single report and exit")
	flag.StringVar(&configFile, "config", "", "YAML file with non-secret settings (overrides REPORT_CONFIG_FILE)")
	flag.Parse()

	os.Exit(run(once, configFile))
}

// run wires the reporter and blocks until SIGINT/SIGTERM. It returns the
// process exit code.
func run(once bool, configFile string) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}
	configPath := config.ConfigFilePath(configFile)
	overlayKeys, err := config.ApplyFileOverlay(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to apply configuration file: %v\n", err)
		return 1
	}

	logCfg := config.LoadLogConfig()
	logger, closer, err := logging.NewLogger(logging.Options{
		Level:  logCfg.Level,
		Format: logCfg.Format,
		File:   logCfg.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()
	slog.SetDefault(logger)

	if configPath != "" {
		logger.Info("configuration file applied",
			slog.String("path", configPath),
			slog.Int("keys", len(overlayKeys)),
			slog.Any("applied", overlayKeys))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := worker.NewWorkerMetrics(nil)

	cfg, err := config.Load(logger, metrics.ConfigMetrics)
	if err != nil {
		var missing *config.MissingKeysError
		if errors.As(err, &missing) {
			logger.Error("missing required configuration", slog.Any("keys", missing.Keys))
		} else {
			logger.Error("failed to load configuration", slog.String("error", err.Error()))
		}
		return 1
	}

	workerCfg, err := worker.LoadConfigFromEnv(logger, metrics.ConfigMetrics)
	if err != nil {
		logger.Error("invalid schedule configuration", slog.String("error", err.Error()))
		return 1
	}
	schedule, err := workerCfg.Schedule()
	if err != nil {
		logger.Error("invalid schedule", slog.String("error", err.Error()))
		return 1
	}
	spec, _ := workerCfg.ScheduleSpec()
	logger.Info("reporter configuration loaded",
		slog.String("schedule", spec),
		slog.String("news_provider", cfg.News.Provider),
		slog.Any("assets", cfg.Market.Assets),
		slog.Int("recipients", len(cfg.Recipients)),
		slog.Int("max_attempts", cfg.HTTP.Retry.MaxAttempts),
		slog.Duration("retry_delay", cfg.HTTP.Retry.Delay),
		slog.Duration("http_timeout", cfg.HTTP.Timeout))

	pipeline, err := buildPipeline(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build report pipeline", slog.String("error", err.Error()))
		return 1
	}

	if once {
		return runOnce(ctx, logger, pipeline)
	}

	var healthServer *worker.HealthServer
	if workerCfg.HealthEnabled {
		healthAddr := fmt.Sprintf(":%d", workerCfg.HealthPort)
		healthServer = worker.NewHealthServer(healthAddr, logger, nil)
		go func() {
			if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server failed", slog.Any("error", err))
			}
		}()
	}

	scheduler, err := worker.NewScheduler(schedule, func(ctx context.Context) error {
		_, err := pipeline.Run(ctx)
		return err
	},
		worker.WithSchedulerLogger(logger),
		worker.WithSchedulerMetrics(metrics),
		worker.WithRunImmediately())
	if err != nil {
		logger.Error("failed to create scheduler", slog.String("error", err.Error()))
		return 1
	}

	if healthServer != nil {
		healthServer.SetReady(true)
	}
	logger.Info("reporter started", slog.String("schedule", spec))

	if err := scheduler.Run(ctx); err != nil {
		logger.Error("scheduler failed", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("reporter stopped")
	return 0
}

// runOnce sends one report. Only a run that produced no mail is a failure.
func runOnce(ctx context.Context, logger *slog.Logger, pipeline *report.Pipeline) int {
	res, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("report run failed", slog.String("error", err.Error()))
		return 1
	}
	if res.Status() == report.StatusFailure {
		return 1
	}
	return 0
}
