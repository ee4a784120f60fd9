package runner

import (
	"log/slog"

	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/aretw0/carpintaria/pkg/widget"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures the StateStore for persistence.
func WithStore(store ports.StateStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID sets the session ID for persistence context.
// This is required if WithStore is used.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithScheduler replaces the wall-clock scheduler of the widget.
func WithScheduler(s widget.Scheduler) Option {
	return func(r *Runner) {
		r.Scheduler = s
	}
}

// WithDispatcher handles OPEN_WINDOW and NAVIGATE effects in addition to
// the system message the runner prints for them.
func WithDispatcher(d ports.ActionDispatcher) Option {
	return func(r *Runner) {
		r.Dispatcher = d
	}
}
