package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/carpintaria/internal/config"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Precache installs and activates the manifest into the configured cache
// store and prints what was stored. Previous generations are evicted.
func Precache(ctx context.Context, cfg *config.Config, cache ports.CacheStore, out io.Writer, logger *slog.Logger) error {
	if cfg.Server.Origin == "" {
		return fmt.Errorf("an origin is required to resolve manifest entries (--server-origin)")
	}
	manifest, err := LoadManifest(cfg.Cache)
	if err != nil {
		return err
	}
	ctrl, err := NewController(cache, *manifest, cfg.Cache, cfg.Server.Origin, domain.CacheHooks{}, logger)
	if err != nil {
		return err
	}

	report, err := ctrl.Install(ctx)
	if report != nil {
		for _, key := range report.Stored {
			fmt.Fprintf(out, "  ✓ %s\n", key)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(out, "  ✗ %v\n", f)
		}
	}
	if err != nil {
		return err
	}

	evicted, err := ctrl.Activate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Generation %s active (%d stored, %d failed, %d evicted)\n",
		ctrl.Generation(), len(report.Stored), len(report.Failed), len(evicted))
	return nil
}

// ListCache prints every generation and its keys.
func ListCache(ctx context.Context, cache ports.CacheStore, out io.Writer) error {
	gens, err := cache.Generations(ctx)
	if err != nil {
		return err
	}
	if len(gens) == 0 {
		fmt.Fprintln(out, "No cache generations.")
		return nil
	}
	for _, gen := range gens {
		keys, err := cache.Keys(ctx, gen)
		if err != nil {
			return err
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "%s (%d entries)\n", gen, len(keys))
		for _, k := range keys {
			fmt.Fprintf(out, "  %s\n", k)
		}
	}
	return nil
}

// PurgeCache deletes the named generations, or all of them when none is given.
func PurgeCache(ctx context.Context, cache ports.CacheStore, generations []string) ([]string, error) {
	if len(generations) == 0 {
		all, err := cache.Generations(ctx)
		if err != nil {
			return nil, err
		}
		generations = all
	}
	for _, gen := range generations {
		if err := cache.DeleteGeneration(ctx, gen); err != nil {
			return nil, fmt.Errorf("purge %s: %w", gen, err)
		}
	}
	return generations, nil
}
