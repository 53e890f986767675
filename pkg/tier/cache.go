package tier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL    = 10 * time.Minute
	defaultCachePrefix = "canvascue:tier:"
	activeTiersKey     = "active"
)

// CacheOption configures a CachedCatalog.
type CacheOption func(*CachedCatalog)

// WithCacheTTL overrides the entry lifetime. Non-positive values are ignored.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedCatalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCachePrefix overrides the key namespace.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *CachedCatalog) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger sets the logger used to report cache failures.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *CachedCatalog) {
		if l != nil {
			c.log = l
		}
	}
}

// CachedCatalog is a read-through Redis cache in front of another Catalog.
// Cache failures are logged and fall through to the source; they never fail a lookup.
type CachedCatalog struct {
	source Catalog
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// NewCachedCatalog wraps source with a Redis cache.
func NewCachedCatalog(source Catalog, client redis.Cmdable, opts ...CacheOption) *CachedCatalog {
	if source == nil {
		panic("tier: cached catalog requires a source")
	}
	if client == nil {
		panic("tier: cached catalog requires a redis client")
	}

	c := &CachedCatalog{
		source: source,
		client: client,
		ttl:    defaultCacheTTL,
		prefix: defaultCachePrefix,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedCatalog) GetTierByID(ctx context.Context, id string) (Tier, error) {
	key := c.prefix + "id:" + id

	var t Tier
	if c.get(ctx, key, &t) {
		return t, nil
	}

	t, err := c.source.GetTierByID(ctx, id)
	if err != nil {
		return Tier{}, err
	}
	c.set(ctx, key, t)
	return t, nil
}

func (c *CachedCatalog) GetActiveTiers(ctx context.Context) ([]Tier, error) {
	key := c.prefix + activeTiersKey

	var tiers []Tier
	if c.get(ctx, key, &tiers) {
		return tiers, nil
	}

	tiers, err := c.source.GetActiveTiers(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, tiers)
	return tiers, nil
}

// Invalidate drops cached entries for the given tier IDs and the active list.
// Call it after reseeding.
func (c *CachedCatalog) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, c.prefix+activeTiersKey)
	for _, id := range ids {
		keys = append(keys, c.prefix+"id:"+id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Join(ErrFailedToCacheTier, err)
	}
	return nil
}

func (c *CachedCatalog) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "tier cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.WarnContext(ctx, "tier cache entry is corrupt", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (c *CachedCatalog) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.WarnContext(ctx, "tier cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "tier cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
