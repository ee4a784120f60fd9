package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Select handles a click on the option at index within the visible block.
func (e *Engine) Select(ctx context.Context, state *domain.ConversationState, index int) (*ports.Step, error) {
	if state == nil {
		return nil, ErrNilState
	}
	visible := state.VisibleOptions()
	if !state.Open || index < 0 || index >= len(visible) {
		return nil, fmt.Errorf("%w: index %d", domain.ErrOptionNotAvailable, index)
	}
	opt := visible[index]

	next := state.Snapshot()
	appendMessage(next, domain.SenderUser, opt.Label)
	step := &ports.Step{State: next}

	switch a := opt.Action.(type) {
	case domain.Next:
		step.Deferred = &ports.Deferred{
			Delay:  e.typingDelay,
			NodeID: a.NodeID,
			Epoch:  next.Epoch,
		}
	case domain.OpenLink:
		step.Actions = append(step.Actions, domain.ActionRequest{Type: domain.ActionOpenWindow, Payload: a.URL})
		appendMessage(next, domain.SenderBot, LinkOpenedMessage)
	case domain.Navigate:
		step.Actions = append(step.Actions, domain.ActionRequest{Type: domain.ActionNavigate, Payload: a.URL})
	case domain.OpenMessaging:
		step.Actions = append(step.Actions, domain.ActionRequest{Type: domain.ActionOpenWindow, Payload: e.MessagingLink(a.Text)})
		appendMessage(next, domain.SenderBot, MessagingMessage)
	default:
		return nil, fmt.Errorf("unsupported action %T", opt.Action)
	}

	e.emitAction(ctx, next, opt)
	return step, nil
}

// Submit handles free text. Blank input is ignored; anything else is echoed
// and answered later with the static deflection.
func (e *Engine) Submit(ctx context.Context, state *domain.ConversationState, text string) (*ports.Step, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if strings.TrimSpace(text) == "" {
		return &ports.Step{State: state.Snapshot()}, nil
	}

	next := state.Snapshot()
	appendMessage(next, domain.SenderUser, text)

	if e.hooks.OnFreeText != nil {
		e.hooks.OnFreeText(ctx, &domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventFreeText,
			SessionID: next.SessionID,
		})
	}

	return &ports.Step{
		State: next,
		Deferred: &ports.Deferred{
			Delay:   e.deflectionDelay,
			Message: DeflectionMessage,
			Epoch:   next.Epoch,
		},
	}, nil
}

// Apply runs deferred work. It reports false without touching the state when
// the widget was closed (or closed and reopened) since the work was scheduled.
func (e *Engine) Apply(ctx context.Context, state *domain.ConversationState, d *ports.Deferred) (*domain.ConversationState, bool, error) {
	if state == nil {
		return nil, false, ErrNilState
	}
	if d == nil || !state.Open || state.Epoch != d.Epoch {
		e.logger.Debug("dropping stale deferred render", "session_id", state.SessionID, "epoch", state.Epoch)
		return state, false, nil
	}

	next := state.Snapshot()
	if d.NodeID != "" {
		if err := e.render(ctx, next, d.NodeID); err != nil {
			return nil, false, err
		}
		return next, true, nil
	}
	appendMessage(next, domain.SenderBot, d.Message)
	return next, true, nil
}
