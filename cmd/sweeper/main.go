// Command sweeper runs the billing sweep on a cron schedule, or once with -once.
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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/billingcycle"
	"github.com/canvascue/accounting/pkg/config"
	"github.com/canvascue/accounting/pkg/logger"
	"github.com/canvascue/accounting/pkg/mongo"
	"github.com/canvascue/accounting/pkg/pg"
	"github.com/canvascue/accounting/pkg/redis"
	"github.com/canvascue/accounting/pkg/store/mongostore"
	"github.com/canvascue/accounting/pkg/store/pgstore"
	"github.com/canvascue/accounting/pkg/sweeper"
	"github.com/canvascue/accounting/pkg/tier"
	"github.com/canvascue/accounting/pkg/usage"
)

type appConfig struct {
	Store        string        `env:"ACCOUNT_STORE" envDefault:"mongo"` // mongo or postgres
	TierCache    bool          `env:"TIER_CACHE_ENABLED" envDefault:"true"`
	GracePeriod  time.Duration `env:"BILLING_GRACE_PERIOD" envDefault:"168h"`
	MetricsAddr  string        `env:"METRICS_ADDR" envDefault:":9090"`
	ShutdownWait time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg, logger.WithAttr(logger.Component("sweeper")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *once); err != nil {
		log.Error("sweeper stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, once bool) error {
	var (
		app      appConfig
		sweepCfg sweeper.Config
		mongoCfg mongo.Config
	)
	if err := errors.Join(config.Load(&app), config.Load(&sweepCfg), config.Load(&mongoCfg)); err != nil {
		return err
	}

	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.WithoutCancel(ctx)) }()

	checks := map[string]func(context.Context) error{"mongo": mongo.Healthcheck(db.Client())}

	var catalog tier.Catalog = tier.NewMongoCatalog(db)
	if app.TierCache {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		checks["redis"] = redis.Healthcheck(client)
		catalog = tier.NewCachedCatalog(catalog, client, tier.WithCacheLogger(log))
	}

	store, closeStore, err := openStore(ctx, app.Store, db, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	accounts := account.NewService(store, catalog, account.WithLogger(log))
	accountant := usage.NewAccountant(store, catalog,
		usage.WithLogger(log),
		usage.WithMetrics(usage.NewMetrics(reg)),
	)
	projector := billingcycle.NewProjector(billingcycle.WithGracePeriod(app.GracePeriod))
	s := sweeper.New(store, accounts, accountant, projector,
		sweeper.WithLogger(log),
		sweeper.WithMetrics(sweeper.NewMetrics(reg)),
		sweeper.WithBatchSize(sweepCfg.BatchSize),
		sweeper.WithMaxPages(sweepCfg.MaxPages),
	)

	if once {
		ctx, cancel := context.WithTimeout(ctx, sweepCfg.Timeout)
		defer cancel()
		_, err := s.Run(ctx)
		return err
	}

	c, err := s.Scheduler(sweepCfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("GET /readyz", readiness(checks, log))

	srv := &http.Server{
		Addr:              app.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	c.Start()
	log.Info("sweeper started", slog.String("schedule", sweepCfg.Schedule), slog.String("store", app.Store))

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			log.Error("metrics server failed", logger.Error(err))
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.ShutdownWait)
	defer cancel()

	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("sweep still running at shutdown")
	}
	return srv.Shutdown(shutdownCtx)
}

// readiness answers 503 when any dependency ping fails. The tier cache is
// optional, so its failure is logged but does not fail the probe.
func readiness(checks map[string]func(context.Context) error, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WarnContext(ctx, "readiness check failed", slog.String("dependency", name), logger.Error(err))
				if name != "redis" {
					status = http.StatusServiceUnavailable
				}
			}
		}
		w.WriteHeader(status)
	})
}

func openStore(ctx context.Context, kind string, db *mongodrv.Database, log *slog.Logger, checks map[string]func(context.Context) error) (account.Store, func(), error) {
	switch kind {
	case "mongo":
		store := mongostore.New(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		checks["postgres"] = pg.Healthcheck(pool)
		return pgstore.New(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown ACCOUNT_STORE %q", kind)
	}
}
