package runner

import (
	"context"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
// Implementations must be safe for concurrent use: deferred renders are
// shown from timer goroutines while Input may be blocked.
type IOHandler interface {
	// Show presents new transcript entries.
	Show(ctx context.Context, entries []domain.Entry) error

	// Input reads one line from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (opened links, errors).
	// This is distinct from the conversation itself.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms bot text before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
