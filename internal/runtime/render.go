package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// render shows a node: its message, then its options in place of any
// previously rendered block.
func (e *Engine) render(ctx context.Context, state *domain.ConversationState, nodeID string) error {
	node, err := e.graph.Node(nodeID)
	if err != nil {
		return fmt.Errorf("failed to render node: %w", err)
	}

	appendMessage(state, domain.SenderBot, node.Message)

	kept := state.Transcript[:0]
	for _, entry := range state.Transcript {
		if entry.Kind != domain.EntryOptions {
			kept = append(kept, entry)
		}
	}
	state.Transcript = kept

	if !node.IsTerminal() {
		state.Transcript = append(state.Transcript, domain.Entry{
			Kind:    domain.EntryOptions,
			Options: append([]domain.Option(nil), node.Options...),
		})
	}
	state.CurrentNodeID = node.ID

	e.logger.Debug("rendered node", "session_id", state.SessionID, "node", node.ID)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now(),
				Type:      domain.EventNodeEnter,
				SessionID: state.SessionID,
			},
			NodeID: node.ID,
		})
	}
	return nil
}

func (e *Engine) emitAction(ctx context.Context, state *domain.ConversationState, opt domain.Option) {
	if e.hooks.OnAction == nil {
		return
	}
	e.hooks.OnAction(ctx, &domain.ActionEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventAction,
			SessionID: state.SessionID,
		},
		NodeID: state.CurrentNodeID,
		Kind:   opt.Action.Kind(),
		Label:  opt.Label,
	})
}

func appendMessage(state *domain.ConversationState, sender domain.Sender, text string) {
	state.Transcript = append(state.Transcript, domain.Entry{
		Kind:   domain.EntryMessage,
		Sender: sender,
		Text:   text,
	})
}

// MessagingLink builds the deep link that opens a chat with the configured
// recipient, prefilled with text.
func (e *Engine) MessagingLink(text string) string {
	return "https://wa.me/" + e.recipient + "?text=" + EncodeURIComponent(text)
}

// EncodeURIComponent escapes s the way browsers do for URI components:
// everything but letters, digits and -_.!~*'() is percent-encoded as UTF-8.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
