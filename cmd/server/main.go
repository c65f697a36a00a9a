package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/karmapulse/internal/adapter/httpserver"
	"github.com/pscheid92/karmapulse/internal/adapter/memory"
	"github.com/pscheid92/karmapulse/internal/adapter/metrics"
	"github.com/pscheid92/karmapulse/internal/adapter/postgres"
	"github.com/pscheid92/karmapulse/internal/adapter/redis"
	"github.com/pscheid92/karmapulse/internal/app"
	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/pscheid92/karmapulse/internal/platform/config"
	"github.com/pscheid92/karmapulse/internal/platform/logging"
	"github.com/pscheid92/karmapulse/internal/platform/version"
)

const connectTimeout = 30 * time.Second

// storage is the property store chosen by STORE_BACKEND plus what main needs
// to check and release it.
type storage struct {
	store        domain.PropertyStore
	healthChecks []httpserver.HealthCheck
	close        func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStorage(cfg *config.Config, reg prometheus.Registerer, clock clockwork.Clock) (*storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := redis.NewClient(ctx, cfg.RedisURL, metrics.NewRedisMetrics(reg), clock)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return &storage{
			store: redis.NewPropertyStore(rdb),
			healthChecks: []httpserver.HealthCheck{
				{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
			},
			close: func() { _ = rdb.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, metrics.NewDBMetrics(reg), clock)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &storage{
			store:        postgres.NewPropertyStore(pool),
			healthChecks: []httpserver.HealthCheck{{Name: "postgres", Check: pool.Ping}},
			close:        pool.Close,
		}, nil

	default:
		slog.Warn("Using in-memory property store, karma is lost on restart")
		return &storage{
			store: memory.NewPropertyStore(),
			close: func() {},
		}, nil
	}
}

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, draining requests")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "version", version.Get().String(), "env", cfg.AppEnv, "backend", cfg.StoreBackend)

	registry := metrics.NewRegistry()

	st, err := setupStorage(cfg, registry, clock)
	if err != nil {
		slog.Error("Failed to set up property store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer st.close()

	svc := app.NewService(st.store, metrics.NewKarmaMetrics(registry), clock, cfg.HighlightChar, cfg.BotNick)
	srv := httpserver.NewServer(cfg, svc, registry, st.healthChecks, clock)

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
