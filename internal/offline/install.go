package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// FetchError is one manifest entry that could not be precached.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// InstallReport summarizes an install.
type InstallReport struct {
	Generation string
	Stored     []string
	Failed     []*FetchError
}

// Install precaches every manifest entry under the controller's generation.
// With PolicyAllOrNothing any failure (network error or non-2xx status)
// aborts the install before anything is written.
func (c *Controller) Install(ctx context.Context) (*InstallReport, error) {
	if s := c.State(); s != domain.ControllerInstalling {
		return nil, fmt.Errorf("cannot install controller in state %s", s)
	}

	report, err := c.install(ctx)

	event := &domain.GenerationEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventInstall},
		Generation: c.manifest.Version,
		Err:        err,
	}
	if report != nil {
		event.Entries = len(report.Stored)
	}
	if c.hooks.OnInstall != nil {
		c.hooks.OnInstall(ctx, event)
	}

	if err != nil {
		c.setState(domain.ControllerTerminated)
		c.logger.Error("precache failed", "generation", c.manifest.Version, "error", err)
		return report, err
	}

	c.setState(domain.ControllerInstalled)
	c.logger.Info("precached assets", "generation", c.manifest.Version, "entries", len(report.Stored), "failed", len(report.Failed))
	return report, nil
}

func (c *Controller) install(ctx context.Context) (*InstallReport, error) {
	report := &InstallReport{Generation: c.manifest.Version}

	keys := make([]string, len(c.manifest.Entries))
	for i, ref := range c.manifest.Entries {
		key, err := c.resolve(ref)
		if err != nil {
			return report, fmt.Errorf("%w: %v", domain.ErrInstallFailed, err)
		}
		keys[i] = key
	}

	staged := make([]*domain.CacheEntry, len(keys))
	var mu sync.Mutex

	var g *errgroup.Group
	gctx := ctx
	if c.policy == PolicyAllOrNothing {
		// The first failure cancels the remaining fetches.
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(c.concurrency)

	for i, key := range keys {
		g.Go(func() error {
			entry, err := c.fetch(gctx, key)
			if err != nil {
				fe := &FetchError{URL: key, Err: err}
				mu.Lock()
				report.Failed = append(report.Failed, fe)
				mu.Unlock()
				if c.policy == PolicyAllOrNothing {
					return fe
				}
				c.logger.Warn("skipping precache entry", "url", key, "error", err)
				return nil
			}
			staged[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("%w: %w", domain.ErrInstallFailed, err)
	}

	for _, entry := range staged {
		if entry == nil {
			continue
		}
		if err := c.store.Put(ctx, c.manifest.Version, entry); err != nil {
			return report, fmt.Errorf("%w: store %s: %w", domain.ErrInstallFailed, entry.Key, err)
		}
		report.Stored = append(report.Stored, entry.Key)
	}
	return report, nil
}

func (c *Controller) fetch(ctx context.Context, key string) (*domain.CacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Transport: c.transport}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > c.maxEntrySize {
		return nil, errors.New("response exceeds max entry size")
	}

	return &domain.CacheEntry{
		Key:      key,
		Status:   resp.StatusCode,
		Header:   storableHeader(resp.Header),
		Body:     body,
		StoredAt: time.Now(),
	}, nil
}
