package carpintaria

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/carpintaria/internal/compiler"
	"github.com/aretw0/carpintaria/internal/content"
	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/internal/runtime"
	"github.com/aretw0/carpintaria/pkg/adapters/file"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// Engine is the high-level entry point for the chat widget.
// It wraps the internal runtime and satisfies ports.DialogueEngine.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.GraphLoader
	graphPath   string
	runtimeOpts []runtime.Option
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

var _ ports.DialogueEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader reads the graph from a custom GraphLoader.
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithGraphFile reads the graph from a YAML or JSON file.
func WithGraphFile(path string) Option {
	return func(e *Engine) {
		e.graphPath = path
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTypingDelay sets how long a selected "next" option waits before the
// target node is rendered.
func WithTypingDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithTypingDelay(d))
	}
}

// WithDeflectionDelay sets how long free text waits for its reply.
func WithDeflectionDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithDeflectionDelay(d))
	}
}

// WithRecipient sets the phone number of messaging deep links.
func WithRecipient(number string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRecipient(number))
	}
}

// New initializes an Engine. Without WithLoader or WithGraphFile it serves
// the embedded default graph. The graph is validated before New returns.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	graph, err := eng.loadGraph()
	if err != nil {
		return nil, err
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(graph, runtimeOpts...)
	return eng, nil
}

func (e *Engine) loadGraph() (*domain.Graph, error) {
	switch {
	case e.loader != nil:
		return compiler.LoadGraph(e.loader)
	case e.graphPath != "":
		l, err := file.LoadGraphFile(e.graphPath)
		if err != nil {
			return nil, err
		}
		e.loader = l
		g, err := compiler.LoadGraph(l)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.graphPath, err)
		}
		return g, nil
	default:
		return content.DefaultGraph()
	}
}

// Open shows the widget, rendering the entry node on first use.
func (e *Engine) Open(ctx context.Context, state *domain.ConversationState) (*ports.Step, error) {
	return e.runtime.Open(ctx, state)
}

// Close hides the widget and invalidates pending renders.
func (e *Engine) Close(ctx context.Context, state *domain.ConversationState) (*ports.Step, error) {
	return e.runtime.Close(ctx, state)
}

// Select activates the option at index of the visible option block.
func (e *Engine) Select(ctx context.Context, state *domain.ConversationState, index int) (*ports.Step, error) {
	return e.runtime.Select(ctx, state, index)
}

// Submit records free text and schedules the deflection reply.
func (e *Engine) Submit(ctx context.Context, state *domain.ConversationState, text string) (*ports.Step, error) {
	return e.runtime.Submit(ctx, state, text)
}

// Apply performs deferred rendering work unless it went stale.
func (e *Engine) Apply(ctx context.Context, state *domain.ConversationState, d *ports.Deferred) (*domain.ConversationState, bool, error) {
	return e.runtime.Apply(ctx, state, d)
}

// Graph returns the validated conversation graph.
func (e *Engine) Graph() *domain.Graph {
	return e.runtime.Graph()
}

// Loader returns the GraphLoader the graph came from, or nil for the embedded graph.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}
