package ports

import (
	"context"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// Step is the outcome of one engine transition.
type Step struct {
	// State is the new conversation state.
	State *domain.ConversationState

	// Actions are side-effects for the host.
	Actions []domain.ActionRequest

	// Deferred, when set, must be applied after its delay through Apply.
	Deferred *Deferred
}

// Deferred is rendering work postponed to simulate typing.
type Deferred struct {
	Delay time.Duration

	// NodeID is rendered when set; otherwise Message is appended as bot.
	NodeID  string
	Message string

	// Epoch is the conversation epoch captured when the work was scheduled.
	Epoch uint64
}

// DialogueEngine defines the transition functions of the chat widget.
// Implementations are pure: they never mutate the state they receive.
type DialogueEngine interface {
	Open(ctx context.Context, state *domain.ConversationState) (*Step, error)
	Close(ctx context.Context, state *domain.ConversationState) (*Step, error)
	Select(ctx context.Context, state *domain.ConversationState, index int) (*Step, error)
	Submit(ctx context.Context, state *domain.ConversationState, text string) (*Step, error)
	Apply(ctx context.Context, state *domain.ConversationState, d *Deferred) (*domain.ConversationState, bool, error)
	Graph() *domain.Graph
}
