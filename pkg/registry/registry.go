package registry

import (
	"context"
	"sync"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Registry routes action requests to handlers by action type.
// It implements ports.ActionDispatcher.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.DispatcherFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]ports.DispatcherFunc),
	}
}

// Register adds a handler for an action type.
// If a handler for the same type exists, it is overwritten.
func (r *Registry) Register(actionType string, fn ports.DispatcherFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionType] = fn
}

// Handles reports whether a handler is registered for actionType.
func (r *Registry) Handles(actionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[actionType]
	return ok
}

// Dispatch runs the handler registered for req.Type.
// Requests without a handler are ignored.
func (r *Registry) Dispatch(ctx context.Context, req domain.ActionRequest) error {
	r.mu.RLock()
	fn, ok := r.handlers[req.Type]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return fn(ctx, req)
}

var _ ports.ActionDispatcher = (*Registry)(nil)
