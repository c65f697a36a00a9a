// Command migrate-legacy-karma converts the per-counter karma properties of
// the old Perl plugin (perl.DazKarma.karma_<term>, upkarma_<term>,
// downkarma_<term>) into karma records. Terms that already have a record are
// left alone, so the tool can be re-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/karmapulse/internal/adapter/postgres"
	"github.com/pscheid92/karmapulse/internal/adapter/redis"
	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/pscheid92/karmapulse/internal/platform/config"
	"github.com/pscheid92/karmapulse/internal/platform/logging"
)

func main() {
	var (
		backend     = flag.String("backend", envOr("STORE_BACKEND", config.BackendRedis), "Property store backend: redis or postgres (or set STORE_BACKEND env)")
		redisURL    = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "PostgreSQL URL (or set DATABASE_URL env)")
		networks    = flag.String("networks", "", "Comma-separated networks (scopes) to migrate")
		dryRun      = flag.Bool("dry-run", false, "Dry run mode (don't write records)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	scopes := parseScopes(*networks)
	if len(scopes) == 0 {
		log.Fatal("At least one network required (--networks)")
	}

	logLevel := "info"
	if *verbose {
		logLevel = "debug"
	}
	logging.InitLogger(logLevel, "text")

	ctx := context.Background()
	clock := clockwork.NewRealClock()

	store, closeStore, err := openStore(ctx, *backend, *redisURL, *databaseURL, clock)
	if err != nil {
		log.Fatalf("Failed to open property store: %v", err)
	}
	defer closeStore()

	start := clock.Now()
	m := newMigrator(store, clock, *dryRun)
	for _, scope := range scopes {
		slog.Info("Starting migration", "scope", scope, "dry_run", *dryRun)
		sum, err := m.migrateScope(ctx, scope)
		if err != nil {
			closeStore()
			log.Fatalf("Migration of %q failed: %v", scope, err)
		}
		slog.Info("Migration summary",
			"scope", scope,
			"scanned", sum.Scanned,
			"terms", sum.Terms,
			"migrated", sum.Migrated,
			"existing", sum.Existing,
			"repaired", sum.Repaired,
		)
	}

	slog.Info("Migration complete", "duration_ms", clock.Since(start).Milliseconds())
}

func openStore(ctx context.Context, backend, redisURL, databaseURL string, clock clockwork.Clock) (propertyStore, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch backend {
	case config.BackendRedis:
		if redisURL == "" {
			return nil, nil, fmt.Errorf("redis URL required (--redis or REDIS_URL env)")
		}
		rdb, err := redis.NewClient(ctx, redisURL, nil, clock)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewPropertyStore(rdb), func() { _ = rdb.Close() }, nil

	case config.BackendPostgres:
		if databaseURL == "" {
			return nil, nil, fmt.Errorf("database URL required (--database or DATABASE_URL env)")
		}
		pool, err := postgres.Connect(ctx, databaseURL, nil, clock)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewPropertyStore(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("backend must be redis or postgres, got %q", backend)
	}
}

func parseScopes(networks string) []domain.Scope {
	var scopes []domain.Scope
	for _, n := range strings.Split(networks, ",") {
		if n = strings.TrimSpace(n); n != "" {
			scopes = append(scopes, domain.Scope(n))
		}
	}
	return scopes
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
