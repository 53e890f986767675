// Package mongo manages the MongoDB connection that backs the tier catalog
// and the subscription account store.
//
// Configuration comes from the environment (see Config). New retries with
// backoff until the server answers a ping, which covers the window where a
// freshly started replica set is not yet electing a primary.
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	accounts := mongostore.New(db)
//	tiers := tier.NewMongoCatalog(db)
//
// Healthcheck returns a ping closure for readiness probes. Errors wrap
// ErrFailedToConnectToMongo or ErrHealthcheckFailed.
package mongo
