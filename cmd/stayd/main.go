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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"staychain/cmd/internal/passphrase"
	"staychain/config"
	"staychain/core"
	"staychain/crypto"
	"staychain/observability/logging"
	telemetry "staychain/observability/otel"
	"staychain/rpc"
	"staychain/storage"
)

const nodePassEnv = "STAY_NODE_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis spec JSON file (overrides config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAY_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("invalid log level", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.Setup(logging.Options{
		Service:  "stayd",
		Env:      env,
		Level:    level,
		FilePath: cfg.LogFile,
	})

	if cfg.Telemetry.Endpoint != "" {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:   "stayd",
			Environment:   env,
			Endpoint:      cfg.Telemetry.Endpoint,
			Insecure:      cfg.Telemetry.Insecure,
			EnableTraces:  cfg.Telemetry.EnableTraces,
			EnableMetrics: cfg.Telemetry.EnableMetrics,
		})
		if err != nil {
			logger.Error("initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			_ = shutdownTelemetry(context.Background())
		}()
	}

	pass, err := passphrase.NewSource(nodePassEnv).Get()
	if err != nil {
		logger.Error("resolve keystore passphrase", slog.Any("error", err))
		os.Exit(1)
	}
	nodeKey, err := crypto.LoadFromKeystore(cfg.NodeKeystorePath, pass)
	if err != nil {
		logger.Error("load node keystore", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	node, err := core.NewNode(db)
	if err != nil {
		logger.Error("create node", slog.Any("error", err))
		os.Exit(1)
	}
	node.SetLogger(logger)
	node.SetQuota(cfg.BookingQuota())
	for module, paused := range cfg.PauseMap() {
		node.SetPaused(module, paused)
	}

	genesisPath := strings.TrimSpace(*genesisFlag)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath != "" {
		if err := node.ApplyGenesis(genesisPath); err != nil {
			logger.Error("apply genesis", slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("node initialised",
		slog.String("network", cfg.NetworkName),
		slog.String("address", nodeKey.PubKey().Address().String()))

	authToken := cfg.RPCToken()
	if authToken == "" {
		logger.Warn("RPC auth token is unset; mutating methods are disabled",
			slog.String("tokenEnv", cfg.RPC.TokenEnv))
	}
	server := rpc.NewServer(node, rpc.Options{
		AuthToken:      authToken,
		RatePerSecond:  cfg.RPC.RatePerSecond,
		RateBurst:      cfg.RPC.RateBurst,
		MaxRequestBody: cfg.RPC.MaxRequestBody,
		Logger:         logger,
	})

	rpcServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var metricsServer *http.Server
	if strings.TrimSpace(cfg.MetricsAddress) != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", slog.String("address", cfg.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics serve", slog.Any("error", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("rpc listening", slog.String("address", cfg.RPCAddress))
		if err := rpcServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("rpc serve", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rpc shutdown", slog.Any("error", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.Any("error", err))
		}
	}
}
