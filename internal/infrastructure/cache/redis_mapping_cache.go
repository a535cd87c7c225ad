package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ledger-shopify-sync/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisMappingCache is the read-through layer in front of the durable
// product-mapping table. Failures are logged and swallowed; callers fall
// through to the repository on any miss.
type RedisMappingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisMappingCache creates a mapping cache with the given entry TTL
func NewRedisMappingCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisMappingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisMappingCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

var _ ports.MappingCache = (*RedisMappingCache)(nil)

func skuKey(storeID string, inventoryItemID int64) string {
	return fmt.Sprintf("mapping:%s:item:%d", storeID, inventoryItemID)
}

func itemKey(storeID, sku string) string {
	return fmt.Sprintf("mapping:%s:sku:%s", storeID, sku)
}

// GetSKU resolves an inventory item id to its SKU, ("", false) on miss
func (c *RedisMappingCache) GetSKU(ctx context.Context, storeID string, inventoryItemID int64) (string, bool) {
	sku, err := c.client.Get(ctx, skuKey(storeID, inventoryItemID)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Mapping cache read failed")
		return "", false
	}
	return sku, true
}

// GetItemID resolves a SKU to its inventory item id, (0, false) on miss
func (c *RedisMappingCache) GetItemID(ctx context.Context, storeID, sku string) (int64, bool) {
	raw, err := c.client.Get(ctx, itemKey(storeID, sku)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Mapping cache read failed")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Put caches both directions of a resolution
func (c *RedisMappingCache) Put(ctx context.Context, storeID, sku string, inventoryItemID int64) {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, itemKey(storeID, sku), strconv.FormatInt(inventoryItemID, 10), c.ttl)
	pipe.Set(ctx, skuKey(storeID, inventoryItemID), sku, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Mapping cache write failed")
	}
}

// Invalidate drops both directions of a resolution
func (c *RedisMappingCache) Invalidate(ctx context.Context, storeID, sku string) {
	id, ok := c.GetItemID(ctx, storeID, sku)
	keys := []string{itemKey(storeID, sku)}
	if ok {
		keys = append(keys, skuKey(storeID, id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Mapping cache invalidation failed")
	}
}
