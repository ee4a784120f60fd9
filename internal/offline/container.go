package offline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/aretw0/carpintaria/internal/logging"
)

// Container routes requests to the active Controller. Until one is
// registered, requests go straight to the network.
type Container struct {
	active    atomic.Pointer[Controller]
	register  sync.Mutex
	transport http.RoundTripper
	logger    *slog.Logger
}

// NewContainer creates an empty container. A nil transport means http.DefaultTransport.
func NewContainer(transport http.RoundTripper, logger *slog.Logger) *Container {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Container{transport: transport, logger: logger}
}

// Active returns the controller currently handling requests, or nil.
func (c *Container) Active() *Controller {
	return c.active.Load()
}

// Register installs ctrl and, if that succeeds, makes it handle every
// subsequent request without waiting for in-flight ones, then activates it.
// On install failure the previous controller keeps serving.
func (c *Container) Register(ctx context.Context, ctrl *Controller) (*InstallReport, error) {
	c.register.Lock()
	defer c.register.Unlock()

	report, err := ctrl.Install(ctx)
	if err != nil {
		if prev := c.active.Load(); prev != nil {
			c.logger.Warn("install failed, keeping previous controller",
				"generation", ctrl.Generation(), "active", prev.Generation(), "error", err)
		}
		return report, err
	}

	// The previous controller stops writing before its generation is evicted.
	prev := c.active.Swap(ctrl)
	if prev != nil && prev != ctrl {
		prev.Terminate()
		prev.Flush()
	}

	if _, err := ctrl.Activate(ctx); err != nil {
		// ctrl's generation is complete, so it keeps serving, without write-through.
		c.logger.Error("activation incomplete", "generation", ctrl.Generation(), "error", err)
		return report, fmt.Errorf("activate %s: %w", ctrl.Generation(), err)
	}
	c.logger.Info("controller activated", "generation", ctrl.Generation())
	return report, nil
}

// Resume makes ctrl, bound to a generation already in the store, handle
// every subsequent request. Nothing is evicted.
func (c *Container) Resume(ctx context.Context, ctrl *Controller) error {
	c.register.Lock()
	defer c.register.Unlock()

	if err := ctrl.Resume(ctx); err != nil {
		return err
	}
	prev := c.active.Swap(ctrl)
	if prev != nil && prev != ctrl {
		prev.Terminate()
		prev.Flush()
	}
	return nil
}

// RoundTrip implements http.RoundTripper.
func (c *Container) RoundTrip(req *http.Request) (*http.Response, error) {
	if ctrl := c.active.Load(); ctrl != nil {
		return ctrl.RoundTrip(req)
	}
	return c.transport.RoundTrip(req)
}

// Flush waits for the active controller's pending cache writes.
func (c *Container) Flush() {
	if ctrl := c.active.Load(); ctrl != nil {
		ctrl.Flush()
	}
}
