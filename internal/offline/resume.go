package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Resume activates the controller over a generation that is already in the
// store. Nothing is fetched and no generation is evicted.
func (c *Controller) Resume(ctx context.Context) error {
	if s := c.State(); s != domain.ControllerInstalling {
		return fmt.Errorf("cannot resume controller in state %s", s)
	}
	keys, err := c.store.Keys(ctx, c.manifest.Version)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", c.manifest.Version, err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s is empty", domain.ErrNoGeneration, c.manifest.Version)
	}
	c.setState(domain.ControllerActive)
	c.logger.Info("resumed cached generation", "generation", c.manifest.Version, "entries", len(keys))
	return nil
}

// LatestGeneration returns the non-empty generation whose entries were
// stored most recently.
func LatestGeneration(ctx context.Context, store ports.CacheStore) (string, error) {
	gens, err := store.Generations(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list generations: %w", err)
	}

	var (
		latest string
		newest time.Time
	)
	for _, gen := range gens {
		keys, err := store.Keys(ctx, gen)
		if err != nil {
			return "", fmt.Errorf("failed to list %s: %w", gen, err)
		}
		for _, key := range keys {
			entry, err := store.Get(ctx, gen, key)
			if err != nil {
				continue
			}
			if latest == "" || entry.StoredAt.After(newest) {
				latest, newest = gen, entry.StoredAt
			}
		}
	}
	if latest == "" {
		return "", domain.ErrNoGeneration
	}
	return latest, nil
}
