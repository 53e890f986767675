// Command tierseed validates a YAML tier catalog and upserts it into MongoDB.
//
//	tierseed -file tiers.yaml
//	tierseed -file tiers.yaml -dry-run
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/canvascue/accounting/pkg/config"
	"github.com/canvascue/accounting/pkg/logger"
	"github.com/canvascue/accounting/pkg/mongo"
	"github.com/canvascue/accounting/pkg/redis"
	"github.com/canvascue/accounting/pkg/tier"
)

func main() {
	file := flag.String("file", "tiers.yaml", "YAML file with the tier catalog")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	invalidate := flag.Bool("invalidate-cache", true, "drop cached tiers from Redis after seeding")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg, logger.WithAttr(logger.Component("tierseed")))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, log, *file, *dryRun, *invalidate); err != nil {
		log.Error("tier seeding failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, file string, dryRun, invalidate bool) error {
	tiers, err := tier.LoadYAMLFile(file)
	if err != nil {
		return err
	}
	for _, t := range tiers {
		log.Info("tier loaded",
			logger.TierID(t.ID),
			slog.Int("level", t.Level),
			slog.String("monthly_price", t.MonthlyPrice.StringFixed(2)),
			slog.Bool("active", t.Active),
		)
	}
	if dryRun {
		log.Info("dry run, nothing written", slog.Int("tiers", len(tiers)))
		return nil
	}

	var mongoCfg mongo.Config
	if err := config.Load(&mongoCfg); err != nil {
		return err
	}
	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.WithoutCancel(ctx)) }()

	catalog := tier.NewMongoCatalog(db)
	if err := catalog.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := catalog.Seed(ctx, tiers); err != nil {
		return err
	}
	log.Info("tiers seeded", slog.Int("tiers", len(tiers)))

	if !invalidate {
		return nil
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ids := make([]string, 0, len(tiers))
	for _, t := range tiers {
		ids = append(ids, t.ID)
	}
	return tier.NewCachedCatalog(catalog, client).Invalidate(ctx, ids...)
}
