package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Policy decides what a partially failed install does.
type Policy int

const (
	// PolicyAllOrNothing fails the install when any entry fails and stores nothing.
	PolicyAllOrNothing Policy = iota
	// PolicyBestEffort stores whatever succeeded and reports the rest.
	PolicyBestEffort
)

func (p Policy) String() string {
	if p == PolicyBestEffort {
		return "best-effort"
	}
	return "all-or-nothing"
}

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "all-or-nothing":
		return PolicyAllOrNothing, nil
	case "best-effort":
		return PolicyBestEffort, nil
	}
	return PolicyAllOrNothing, fmt.Errorf("unknown precache policy %q", s)
}

const (
	defaultConcurrency  = 6
	defaultMaxEntrySize = 10 << 20
)

// Controller intercepts requests for one cache generation.
type Controller struct {
	store        ports.CacheStore
	manifest     domain.Manifest
	base         *url.URL
	transport    http.RoundTripper
	logger       *slog.Logger
	hooks        domain.CacheHooks
	policy       Policy
	concurrency  int
	maxEntrySize int64

	mu    sync.RWMutex
	state domain.ControllerState

	writes sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithTransport sets the network transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Controller) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithBaseURL sets the origin that relative manifest entries resolve against.
func WithBaseURL(base *url.URL) Option {
	return func(c *Controller) {
		c.base = base
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHooks registers observability callbacks.
func WithHooks(hooks domain.CacheHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithPolicy sets the install policy.
func WithPolicy(p Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithConcurrency bounds parallel fetches during install.
func WithConcurrency(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxEntrySize skips caching responses larger than n bytes.
func WithMaxEntrySize(n int64) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxEntrySize = n
		}
	}
}

// New creates a controller for manifest.Version. Empty Version and Fallback
// take the package defaults.
func New(store ports.CacheStore, manifest domain.Manifest, opts ...Option) *Controller {
	if manifest.Version == "" {
		manifest.Version = domain.DefaultGeneration
	}
	if manifest.Fallback == "" {
		manifest.Fallback = domain.DefaultFallback
	}
	c := &Controller{
		store:        store,
		manifest:     manifest,
		transport:    http.DefaultTransport,
		logger:       logging.NewNop(),
		policy:       PolicyAllOrNothing,
		concurrency:  defaultConcurrency,
		maxEntrySize: defaultMaxEntrySize,
		state:        domain.ControllerInstalling,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generation returns the cache generation this controller owns.
func (c *Controller) Generation() string {
	return c.manifest.Version
}

// Manifest returns the precache manifest.
func (c *Controller) Manifest() domain.Manifest {
	return c.manifest
}

// State returns the lifecycle state.
func (c *Controller) State() domain.ControllerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s domain.ControllerState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Activate deletes every generation but this one and starts controlling
// requests. It returns the evicted generations.
func (c *Controller) Activate(ctx context.Context) ([]string, error) {
	if s := c.State(); s != domain.ControllerInstalled {
		return nil, fmt.Errorf("cannot activate controller in state %s", s)
	}

	gens, err := c.store.Generations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	var evicted []string
	var errs []error
	for _, gen := range gens {
		if gen == c.manifest.Version {
			continue
		}
		if err := c.store.DeleteGeneration(ctx, gen); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", gen, err))
			continue
		}
		c.logger.Info("removed old cache", "generation", gen)
		evicted = append(evicted, gen)
	}

	event := &domain.GenerationEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventActivate},
		Generation: c.manifest.Version,
		Evicted:    evicted,
		Err:        errors.Join(errs...),
	}
	if c.hooks.OnActivate != nil {
		c.hooks.OnActivate(ctx, event)
	}
	if event.Err != nil {
		return evicted, event.Err
	}

	c.setState(domain.ControllerActive)
	return evicted, nil
}

// Terminate stops the controller from writing to its generation. Writes
// already under way land before it returns; requests still in flight
// complete normally.
func (c *Controller) Terminate() {
	c.setState(domain.ControllerTerminated)
}

// Flush waits for pending write-through cache stores to finish.
func (c *Controller) Flush() {
	c.writes.Wait()
}

// resolve turns a manifest entry or request URL into the cache key.
func (c *Controller) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if !u.IsAbs() {
		if c.base == nil {
			return "", fmt.Errorf("relative entry %q needs a base url", ref)
		}
		u = c.base.ResolveReference(u)
	}
	return cacheKey(u), nil
}

// cacheKey is the fully qualified URL without its fragment.
func cacheKey(u *url.URL) string {
	k := *u
	k.Fragment = ""
	k.RawFragment = ""
	return k.String()
}
