package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/aretw0/carpintaria"
	"github.com/aretw0/carpintaria/internal/config"
	"github.com/aretw0/carpintaria/internal/content"
	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/internal/offline"
	"github.com/aretw0/carpintaria/pkg/adapters/file"
	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/carpintaria/pkg/adapters/redis"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/persistence/middleware"
	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/aretw0/carpintaria/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// NewLogger builds the process logger. debug forces debug level.
func NewLogger(w io.Writer, cfg config.LogConfig, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := logging.ParseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithFormat(w, level, cfg.Format)
}

// NewEngine builds the dialogue engine from the chat section.
func NewEngine(cfg config.ChatConfig, hooks domain.LifecycleHooks, logger *slog.Logger) (*carpintaria.Engine, error) {
	opts := []carpintaria.Option{
		carpintaria.WithLogger(logger),
		carpintaria.WithLifecycleHooks(hooks),
	}
	if cfg.Graph != "" {
		opts = append(opts, carpintaria.WithGraphFile(cfg.Graph))
	}
	if cfg.Recipient != "" {
		opts = append(opts, carpintaria.WithRecipient(cfg.Recipient))
	}
	if cfg.TypingDelay > 0 {
		opts = append(opts, carpintaria.WithTypingDelay(cfg.TypingDelay))
	}
	if cfg.DeflectionDelay > 0 {
		opts = append(opts, carpintaria.WithDeflectionDelay(cfg.DeflectionDelay))
	}
	return carpintaria.New(opts...)
}

// LoadManifest reads the configured manifest, or the embedded one.
func LoadManifest(cfg config.CacheConfig) (*domain.Manifest, error) {
	if cfg.Manifest == "" {
		return content.DefaultManifest()
	}
	return file.LoadManifest(cfg.Manifest)
}

// Stores bundles the persistence adapters selected by the configuration.
type Stores struct {
	Sessions ports.StateStore
	Cache    ports.CacheStore
	Locker   ports.DistributedLocker

	client *backend.Client
}

// OpenStores creates the session and cache stores. A Redis client is opened
// only when one of them needs it and is shared between both.
func OpenStores(cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	redisClient := func() *backend.Client {
		if s.client == nil {
			s.client = redisAdapter.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		}
		return s.client
	}

	switch cfg.Session.Store {
	case "", "memory":
		s.Sessions = memory.NewStore()
	case "file":
		s.Sessions = file.New(cfg.Session.Dir)
	case "redis":
		s.Sessions = redisAdapter.NewFromClient(redisClient(),
			redisAdapter.WithPrefix(cfg.Redis.Prefix+"session:"),
			redisAdapter.WithTTL(cfg.Session.TTL),
		)
		s.Locker = redisAdapter.NewLocker(redisClient(), cfg.Redis.Prefix+"lock:")
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	if err := s.secureSessions(cfg.Session); err != nil {
		s.Close()
		return nil, err
	}

	switch cfg.Cache.Store {
	case "", "memory":
		s.Cache = memory.NewCacheStore()
	case "redis":
		s.Cache = redisAdapter.NewCacheStore(redisClient(), cfg.Redis.Prefix+"cache:")
	default:
		s.Close()
		return nil, fmt.Errorf("unknown cache store %q", cfg.Cache.Store)
	}
	return s, nil
}

// secureSessions wraps the session store with PII masking and encryption.
func (s *Stores) secureSessions(cfg config.SessionConfig) error {
	var mws []middleware.Middleware
	if cfg.MaskPII {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	}
	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("invalid session encryption key: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("session encryption key must be 32 bytes, got %d", len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	s.Sessions = middleware.Chain(s.Sessions, mws...)
	return nil
}

// SessionManager wraps the session store, adding the distributed lock when
// sessions live in Redis.
func (s *Stores) SessionManager(logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if s.Locker != nil {
		opts = append(opts, session.WithLocker(s.Locker))
	}
	return session.NewManager(s.Sessions, opts...)
}

// Close releases the Redis client, if any.
func (s *Stores) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// NewController builds a cache controller for manifest, resolving relative
// entries against origin.
func NewController(store ports.CacheStore, manifest domain.Manifest, cfg config.CacheConfig, origin string, hooks domain.CacheHooks, logger *slog.Logger) (*offline.Controller, error) {
	policy, err := offline.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	opts := []offline.Option{
		offline.WithPolicy(policy),
		offline.WithHooks(hooks),
		offline.WithLogger(logger),
	}
	if cfg.Concurrency > 0 {
		opts = append(opts, offline.WithConcurrency(cfg.Concurrency))
	}
	if origin != "" {
		base, err := parseOrigin(origin)
		if err != nil {
			return nil, err
		}
		opts = append(opts, offline.WithBaseURL(base))
	}
	return offline.New(store, manifest, opts...), nil
}

func parseOrigin(origin string) (*url.URL, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("origin must be an absolute URL")
	}
	return u, nil
}
