package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"staychain/gateway/config"
	"staychain/gateway/idempotency"
	"staychain/gateway/middleware"
	"staychain/gateway/routes"
	"staychain/observability/logging"
	telemetry "staychain/observability/otel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to gateway configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAY_ENV"))
	logger := logging.Setup(logging.Options{Service: "stay-gateway", Env: env})

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Observability.Tracing {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:   cfg.Observability.ServiceName,
			Environment:   cfg.Environment,
			Endpoint:      cfg.Telemetry.Endpoint,
			Insecure:      cfg.Telemetry.Insecure,
			EnableTraces:  true,
			EnableMetrics: cfg.Observability.Metrics,
		})
		if err != nil {
			logger.Error("initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			_ = shutdownTelemetry(context.Background())
		}()
	}

	nodeURL, err := cfg.NodeURL()
	if err != nil {
		logger.Error("resolve node endpoint", slog.Any("error", err))
		os.Exit(1)
	}
	client, err := routes.NewClient(nodeURL, cfg.Node.Timeout, cfg.NodeToken())
	if err != nil {
		logger.Error("build node client", slog.Any("error", err))
		os.Exit(1)
	}

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Auth.Enabled,
		Secret:     cfg.AuthSecret(),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ScopeClaim: cfg.Auth.ScopeClaim,
		ClockSkew:  cfg.Auth.ClockSkew,
	}, logger)

	rateLimits := make(map[string]middleware.RateLimit)
	for _, entry := range cfg.RateLimits {
		if strings.TrimSpace(entry.Key) == "" {
			continue
		}
		rateLimits[entry.Key] = middleware.RateLimit{
			RatePerSecond: entry.RatePerSecond,
			Burst:         entry.Burst,
		}
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   cfg.Observability.ServiceName,
		MetricsPrefix: cfg.Observability.MetricsPrefix,
		Metrics:       cfg.Observability.Metrics,
		Tracing:       cfg.Observability.Tracing,
		LogRequests:   cfg.Observability.LogRequests,
	}, logger)

	var store *idempotency.Store
	if path := strings.TrimSpace(cfg.Idempotency.Path); path != "" {
		store, err = idempotency.NewStore(path, cfg.Idempotency.TTL)
		if err != nil {
			logger.Error("open idempotency store", slog.Any("error", err))
			os.Exit(1)
		}
		defer store.Close()
	}

	router, err := routes.New(routes.Config{
		Client:        client,
		NodeProxy:     routes.NewNodeProxy(nodeURL, logger),
		Authenticator: auth,
		RateLimiter:   middleware.NewRateLimiter(rateLimits, logger),
		Observability: obs,
		Idempotency:   store,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
	})
	if err != nil {
		logger.Error("configure routes", slog.Any("error", err))
		os.Exit(1)
	}

	handler := http.Handler(router)
	if cfg.Observability.Tracing {
		handler = otelhttp.NewHandler(router, "stay-gateway")
	}

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("listen", slog.Any("error", err))
		os.Exit(1)
	}

	useTLS := strings.TrimSpace(cfg.TLS.CertFile) != "" && strings.TrimSpace(cfg.TLS.KeyFile) != ""
	go func() {
		scheme := "http"
		if useTLS {
			scheme = "https"
		}
		logger.Info("gateway listening",
			slog.String("address", listener.Addr().String()),
			slog.String("scheme", scheme))
		var serveErr error
		if useTLS {
			serveErr = server.ServeTLS(listener, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serveErr = server.Serve(listener)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("serve", slog.Any("error", serveErr))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
}
