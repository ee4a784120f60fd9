package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// DefaultPIIPatterns match phone numbers and e-mail addresses.
var DefaultPIIPatterns = []string{
	`\+?\d[\d\s().-]{7,}\d`,
	`[\w.+-]+@[\w-]+(\.[\w-]+)+`,
}

const mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks matches of the patterns in
// user messages before they are persisted. Bot messages come from the graph
// and are stored as is.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.ConversationState) error {
	// Copy so the in-memory state used by the widget keeps the real text.
	cloned := state.Snapshot()
	for i, e := range cloned.Transcript {
		if e.Kind != domain.EntryMessage || e.Sender != domain.SenderUser {
			continue
		}
		for _, p := range m.patterns {
			e.Text = p.ReplaceAllString(e.Text, mask)
		}
		cloned.Transcript[i] = e
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.ConversationState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
