package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/carpintaria/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// CacheStore implements ports.CacheStore using one Redis hash per
// generation, field = request URL. A set tracks the known generations.
// HSET is atomic per field, so concurrent writers resolve to last write wins.
type CacheStore struct {
	client *backend.Client
	prefix string
}

// NewCacheStore creates a cache store. An empty prefix defaults to "carpintaria:cache:".
func NewCacheStore(client *backend.Client, prefix string) *CacheStore {
	if prefix == "" {
		prefix = "carpintaria:cache:"
	}
	return &CacheStore{client: client, prefix: prefix}
}

func (c *CacheStore) entriesKey(generation string) string {
	return c.prefix + generation + ":entries"
}

func (c *CacheStore) generationsKey() string {
	return c.prefix + "generations"
}

func (c *CacheStore) Get(ctx context.Context, generation, key string) (*domain.CacheEntry, error) {
	val, err := c.client.HGet(ctx, c.entriesKey(generation), key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

func (c *CacheStore) Put(ctx context.Context, generation string, entry *domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.entriesKey(generation), entry.Key, data)
	pipe.SAdd(ctx, c.generationsKey(), generation)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// deleteEntry removes a field and drops the generation from the set once
// its hash is gone, in one step so a concurrent Put cannot be orphaned.
var deleteEntry = backend.NewScript(`
redis.call('HDEL', KEYS[1], ARGV[1])
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('SREM', KEYS[2], ARGV[2])
end
return 0
`)

func (c *CacheStore) Delete(ctx context.Context, generation, key string) error {
	keys := []string{c.entriesKey(generation), c.generationsKey()}
	if err := deleteEntry.Run(ctx, c.client, keys, key, generation).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (c *CacheStore) Keys(ctx context.Context, generation string) ([]string, error) {
	keys, err := c.client.HKeys(ctx, c.entriesKey(generation)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *CacheStore) Generations(ctx context.Context) ([]string, error) {
	gens, err := c.client.SMembers(ctx, c.generationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	sort.Strings(gens)
	return gens, nil
}

func (c *CacheStore) DeleteGeneration(ctx context.Context, generation string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.entriesKey(generation))
	pipe.SRem(ctx, c.generationsKey(), generation)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete generation %s: %w", generation, err)
	}
	return nil
}
