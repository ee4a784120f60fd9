package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/carpintaria/internal/config"
	"github.com/aretw0/carpintaria/internal/offline"
	httpAdapter "github.com/aretw0/carpintaria/pkg/adapters/http"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/metrics"
	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServerHandler wires the chat API, metrics and, when an origin is
// configured, the offline-cached proxy. The returned container is nil
// without an origin.
func NewServerHandler(ctx context.Context, cfg *config.Config, stores *Stores, logger *slog.Logger) (http.Handler, *offline.Container, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	engine, err := NewEngine(cfg.Chat, m.LifecycleHooks(logger), logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithSessions(stores.SessionManager(logger)),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}

	var container *offline.Container
	if cfg.Server.Origin != "" {
		hooks := m.CacheHooks(logger)
		origin, err := parseOrigin(cfg.Server.Origin)
		if err != nil {
			return nil, nil, err
		}
		manifest, err := LoadManifest(cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		newCtrl := func(mf domain.Manifest) (*offline.Controller, error) {
			return NewController(stores.Cache, mf, cfg.Cache, cfg.Server.Origin, hooks, logger)
		}
		container = offline.NewContainer(nil, logger)
		if err := startCache(ctx, container, stores.Cache, *manifest, cfg.Cache, newCtrl, logger); err != nil {
			return nil, nil, err
		}
		opts = append(opts, httpAdapter.WithProxy(offline.NewProxy(origin, container, logger)))
	}

	handler, err := httpAdapter.NewHandler(engine, opts...)
	if err != nil {
		return nil, nil, err
	}
	return handler, container, nil
}

// startCache registers the manifest's generation. When that install fails,
// the newest generation already in the store keeps serving and the install
// is retried in the background with exponential backoff until ctx is done.
func startCache(ctx context.Context, container *offline.Container, store ports.CacheStore, manifest domain.Manifest,
	cfg config.CacheConfig, newCtrl func(domain.Manifest) (*offline.Controller, error), logger *slog.Logger) error {
	ctrl, err := newCtrl(manifest)
	if err != nil {
		return err
	}
	_, err = container.Register(ctx, ctrl)
	if err == nil {
		return nil
	}
	logger.Warn("offline cache not installed", "generation", ctrl.Generation(), "error", err)
	if !errors.Is(err, domain.ErrInstallFailed) {
		// Installed but not fully activated: the new generation already serves.
		return nil
	}

	if gen, lerr := offline.LatestGeneration(ctx, store); lerr == nil {
		previous := manifest
		previous.Version = gen
		prev, err := newCtrl(previous)
		if err != nil {
			return err
		}
		if err := container.Resume(ctx, prev); err != nil {
			logger.Warn("cannot resume cached generation", "generation", gen, "error", err)
		}
	} else {
		logger.Warn("no cached generation to fall back to", "error", lerr)
	}

	if cfg.RetryInterval > 0 {
		go retryInstall(ctx, container, manifest, cfg, newCtrl, logger)
	}
	return nil
}

func retryInstall(ctx context.Context, container *offline.Container, manifest domain.Manifest,
	cfg config.CacheConfig, newCtrl func(domain.Manifest) (*offline.Controller, error), logger *slog.Logger) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryInterval
	if cfg.RetryMaxInterval > cfg.RetryInterval {
		b.MaxInterval = cfg.RetryMaxInterval
	} else {
		b.MaxInterval = cfg.RetryInterval
	}
	b.MaxElapsedTime = 0

	op := func() error {
		ctrl, err := newCtrl(manifest)
		if err != nil {
			return backoff.Permanent(err)
		}
		_, err = container.Register(ctx, ctrl)
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("offline cache install failed, retrying", "generation", manifest.Version, "in", next, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		if ctx.Err() == nil {
			logger.Error("offline cache install abandoned", "generation", manifest.Version, "error", err)
		}
		return
	}
	logger.Info("offline cache installed after retry", "generation", manifest.Version)
}

// Serve runs the HTTP server until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	stores, err := OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	handler, container, err := NewServerHandler(ctx, cfg, stores, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting carpintaria server", "addr", srv.Addr, "origin", cfg.Server.Origin)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown did not complete", "error", err)
		_ = srv.Close()
	}
	if container != nil {
		container.Flush()
	}
	logger.Info("carpintaria server stopped gracefully")
	return nil
}
