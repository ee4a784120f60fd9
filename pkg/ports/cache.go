package ports

import (
	"context"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// CacheStore defines the storage behind the offline cache controller.
// Entries live inside named generations; deleting a generation drops every
// entry it holds. Implementations must serialize concurrent writes to the
// same key (last writer wins).
type CacheStore interface {
	// Get returns the entry stored under key in generation.
	// Returns domain.ErrEntryNotFound if there is none.
	Get(ctx context.Context, generation, key string) (*domain.CacheEntry, error)

	// Put stores entry under entry.Key, creating the generation if needed.
	Put(ctx context.Context, generation string, entry *domain.CacheEntry) error

	// Delete removes a single entry. Deleting a missing entry is not an error.
	// Removing the last entry of a generation removes the generation too.
	Delete(ctx context.Context, generation, key string) error

	// Keys lists the keys stored in generation, sorted.
	Keys(ctx context.Context, generation string) ([]string, error)

	// Generations lists every existing generation, sorted.
	Generations(ctx context.Context) ([]string, error)

	// DeleteGeneration removes a generation and all its entries.
	DeleteGeneration(ctx context.Context, generation string) error
}
