package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Fixed bot replies.
const (
	LinkOpenedMessage  = "Abri o link numa nova aba! 😊"
	MessagingMessage   = "Redirecionando para o WhatsApp..."
	DeflectionMessage  = "Ainda estou a aprender a ler texto livre! Por favor, use os botões acima. 😅"
	DefaultRecipient   = "258840000000"
	DefaultTypingDelay = 500 * time.Millisecond
	DefaultDeflection  = time.Second
)

// ErrNilState is returned when a transition receives no state.
var ErrNilState = errors.New("conversation state is nil")

// Engine is the dialogue state machine. It holds only the immutable graph and
// its settings, so one Engine can serve any number of conversations.
type Engine struct {
	graph           *domain.Graph
	typingDelay     time.Duration
	deflectionDelay time.Duration
	recipient       string
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTypingDelay sets how long a node render is postponed after a selection.
func WithTypingDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.typingDelay = d
	}
}

// WithDeflectionDelay sets how long the free-text reply is postponed.
func WithDeflectionDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.deflectionDelay = d
	}
}

// WithRecipient sets the phone number used by messaging deep links.
func WithRecipient(number string) Option {
	return func(e *Engine) {
		if number != "" {
			e.recipient = number
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over a validated graph.
func NewEngine(graph *domain.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:           graph,
		typingDelay:     DefaultTypingDelay,
		deflectionDelay: DefaultDeflection,
		recipient:       DefaultRecipient,
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.DialogueEngine = (*Engine)(nil)

// Graph returns the conversation graph.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Open shows the widget. The entry node is rendered only for an empty
// transcript; a previously started conversation resumes as it was.
func (e *Engine) Open(ctx context.Context, state *domain.ConversationState) (*ports.Step, error) {
	if state == nil {
		return nil, ErrNilState
	}
	next := state.Snapshot()
	next.Open = true

	if len(next.Transcript) == 0 {
		if err := e.render(ctx, next, e.graph.Entry); err != nil {
			return nil, err
		}
	}
	return &ports.Step{State: next}, nil
}

// Close hides the widget. Pending deferred work becomes stale.
func (e *Engine) Close(ctx context.Context, state *domain.ConversationState) (*ports.Step, error) {
	if state == nil {
		return nil, ErrNilState
	}
	next := state.Snapshot()
	next.Open = false
	next.Epoch++
	return &ports.Step{State: next}, nil
}
