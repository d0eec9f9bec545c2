package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"staychain/observability/logging"
	telemetry "staychain/observability/otel"
	"staychain/services/archiver"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to archiver configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAY_ENV"))

	cfg, err := archiver.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Error("invalid log level", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.Setup(logging.Options{Service: "stay-archiverd", Env: env, Level: level})

	if cfg.Telemetry.Endpoint != "" {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:   "stay-archiverd",
			Environment:   env,
			Endpoint:      cfg.Telemetry.Endpoint,
			Insecure:      cfg.Telemetry.Insecure,
			EnableTraces:  true,
			EnableMetrics: true,
		})
		if err != nil {
			logger.Error("initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			_ = shutdownTelemetry(context.Background())
		}()
	}

	store, err := archiver.OpenStore(cfg.Database)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	service, err := archiver.NewService(cfg, store, logger)
	if err != nil {
		logger.Error("build service", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("archiver listening", slog.String("address", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve", slog.Any("error", err))
			stop()
		}
	}()

	if err := service.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("archiver stopped", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
