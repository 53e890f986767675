// Package redis connects to the Redis instance that caches tier catalog
// lookups.
//
// Connect retries until the server answers PING and Healthcheck adapts a
// client to the func(context.Context) error shape used by readiness probes.
// Cache logic lives with its owner (see tier.CachedCatalog); this package
// only manages the connection.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	catalog := tier.NewCachedCatalog(tier.NewMongoCatalog(db), client)
package redis
