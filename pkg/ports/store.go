package ports

import (
	"context"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// StateStore defines the interface for persisting conversation state.
// The widget itself keeps no cross-session state; stores exist for hosts
// (HTTP, MCP) that serve many short requests for the same conversation.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.ConversationState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.ConversationState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of stored sessions.
	List(ctx context.Context) ([]string, error)
}
