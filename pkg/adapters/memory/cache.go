package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// CacheStore implements ports.CacheStore in memory.
// Safe for concurrent use; the last write to a key wins.
type CacheStore struct {
	mu          sync.RWMutex
	generations map[string]map[string]*domain.CacheEntry
}

// NewCacheStore creates an empty cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		generations: make(map[string]map[string]*domain.CacheEntry),
	}
}

func (c *CacheStore) Get(ctx context.Context, generation, key string) (*domain.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.generations[generation][key]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(entry), nil
}

func (c *CacheStore) Put(ctx context.Context, generation string, entry *domain.CacheEntry) error {
	copied := cloneEntry(entry)

	c.mu.Lock()
	defer c.mu.Unlock()

	gen, ok := c.generations[generation]
	if !ok {
		gen = make(map[string]*domain.CacheEntry)
		c.generations[generation] = gen
	}
	gen[entry.Key] = copied
	return nil
}

func (c *CacheStore) Delete(ctx context.Context, generation, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, ok := c.generations[generation]
	if !ok {
		return nil
	}
	delete(gen, key)
	if len(gen) == 0 {
		delete(c.generations, generation)
	}
	return nil
}

func (c *CacheStore) Keys(ctx context.Context, generation string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.generations[generation]))
	for k := range c.generations[generation] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *CacheStore) Generations(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gens := make([]string, 0, len(c.generations))
	for g := range c.generations {
		gens = append(gens, g)
	}
	sort.Strings(gens)
	return gens, nil
}

func (c *CacheStore) DeleteGeneration(ctx context.Context, generation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.generations, generation)
	return nil
}

func cloneEntry(e *domain.CacheEntry) *domain.CacheEntry {
	out := *e
	out.Header = e.Header.Clone()
	out.Body = append([]byte(nil), e.Body...)
	return &out
}
