package ports

import (
	"context"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// ActionDispatcher defines how side-effects are executed.
// The engine emits requests, and the host implements this interface to handle them.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, req domain.ActionRequest) error
}

// DispatcherFunc adapts a function to ActionDispatcher.
type DispatcherFunc func(ctx context.Context, req domain.ActionRequest) error

func (f DispatcherFunc) Dispatch(ctx context.Context, req domain.ActionRequest) error {
	return f(ctx, req)
}
