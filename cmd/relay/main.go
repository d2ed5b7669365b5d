package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/conciergelabs/checkout-concierge/api/routes"
	"github.com/conciergelabs/checkout-concierge/internal/agent"
	"github.com/conciergelabs/checkout-concierge/internal/relay"
	"github.com/conciergelabs/checkout-concierge/internal/sessions"
	"github.com/conciergelabs/checkout-concierge/internal/stream"
	"github.com/conciergelabs/checkout-concierge/pkg/config"
	"github.com/conciergelabs/checkout-concierge/pkg/db"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
	"github.com/conciergelabs/checkout-concierge/pkg/metrics"
	"github.com/conciergelabs/checkout-concierge/pkg/postcodes"
	"github.com/conciergelabs/checkout-concierge/pkg/redis"
)

const (
	shutdownTimeout = 10 * time.Second
	webhookDedupTTL = 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "relay"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "relay",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	agentClient, err := agent.NewClient(
		cfg.Agent.Endpoint,
		cfg.Agent.APIKey,
		cfg.Agent.Timeout,
		agent.WithLogger(logg),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create agent client", err)
		os.Exit(1)
	}

	countyClient := postcodes.NewClient(
		postcodes.WithBaseURL(cfg.Postcodes.BaseURL),
		postcodes.WithHTTPClient(&http.Client{Timeout: cfg.Postcodes.Timeout}),
	)

	hub := stream.NewHub()
	guard := redis.NewDeliveryGuard(redisClient, webhookDedupTTL)
	runsRepo := sessions.NewRepository(dbClient.DB())
	svc := relay.NewService(agentClient, countyClient, runsRepo, hub, logg)

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, svc, hub, guard, dbClient, redisClient, httpMetrics, registry),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting relay server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "relay server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "relay server shutting down gracefully")
}
