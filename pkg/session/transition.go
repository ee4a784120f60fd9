package session

import (
	"context"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Result is one engine transition applied to a stored session.
type Result struct {
	Prev    *domain.ConversationState
	State   *domain.ConversationState
	Actions []domain.ActionRequest

	// TypingDelay is the delay of the deferred render that was applied
	// eagerly, zero when the step had none.
	TypingDelay time.Duration
}

// Transition runs fn on the session under its lock and saves the outcome.
// Request/response hosts cannot wait for timers, so a deferred render is
// applied before saving and only its delay is reported.
func (m *Manager) Transition(ctx context.Context, engine ports.DialogueEngine, sessionID string, fn func(*domain.ConversationState) (*ports.Step, error)) (*Result, error) {
	return m.transition(ctx, engine, sessionID, true, fn)
}

// TransitionExisting is Transition for a session that must already exist.
func (m *Manager) TransitionExisting(ctx context.Context, engine ports.DialogueEngine, sessionID string, fn func(*domain.ConversationState) (*ports.Step, error)) (*Result, error) {
	return m.transition(ctx, engine, sessionID, false, fn)
}

func (m *Manager) transition(ctx context.Context, engine ports.DialogueEngine, sessionID string, create bool, fn func(*domain.ConversationState) (*ports.Step, error)) (*Result, error) {
	res := &Result{}
	next, err := m.update(ctx, sessionID, create, func(state *domain.ConversationState) (*domain.ConversationState, error) {
		res.Prev = state.Snapshot()
		step, err := fn(state)
		if err != nil {
			return nil, err
		}
		out := step.State
		if d := step.Deferred; d != nil {
			applied, ok, err := engine.Apply(ctx, out, d)
			if err != nil {
				return nil, err
			}
			if ok {
				out = applied
			}
			res.TypingDelay = d.Delay
		}
		res.Actions = step.Actions
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	res.State = next
	return res, nil
}
