package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tezos-reporter/internal/types"
)

// keyPrefix namespaces export cache entries
const keyPrefix = "tzreport:raw:"

// ReportCache stores the raw transaction sets fetched while generating a
// report, keyed by the resolved address set and window, so the matching CSV
// download renders from the exact same data. Entries expire after the
// configured TTL; nothing here is a persistent store.
type ReportCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewReportCache creates a report cache on top of a Redis connection
func NewReportCache(redisCache *RedisCache, ttl time.Duration) *ReportCache {
	return &ReportCache{redis: redisCache, ttl: ttl}
}

// Key derives the cache key for a resolved address set and window
func (c *ReportCache) Key(addresses []types.Address, window types.ReportWindow) string {
	parts := make([]string, 0, len(addresses)+2)
	for _, addr := range addresses {
		parts = append(parts, addr.Value)
	}
	parts = append(parts,
		window.Start.UTC().Format(time.RFC3339),
		window.End.UTC().Format(time.RFC3339))

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Put stores the per-address raw transaction sets under the key
func (c *ReportCache) Put(ctx context.Context, key string, sets map[string][]types.RawTransaction) error {
	payload, err := json.Marshal(sets)
	if err != nil {
		return fmt.Errorf("failed to encode raw transaction sets: %w", err)
	}
	return c.redis.Set(ctx, key, payload, c.ttl)
}

// Get retrieves the per-address raw transaction sets for the key. The second
// return value reports whether the entry was present.
func (c *ReportCache) Get(ctx context.Context, key string) (map[string][]types.RawTransaction, bool, error) {
	payload, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var sets map[string][]types.RawTransaction
	if err := json.Unmarshal([]byte(payload), &sets); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached transaction sets: %w", err)
	}
	return sets, true, nil
}
