package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// ErrDisposed is returned by interactions after the widget navigated away.
var ErrDisposed = errors.New("widget disposed")

// Observer is notified after every state change, outside the widget lock.
type Observer func(prev, next *domain.ConversationState)

// Widget owns one conversation.
type Widget struct {
	engine     ports.DialogueEngine
	dispatcher ports.ActionDispatcher
	scheduler  Scheduler
	observer   Observer
	logger     *slog.Logger

	mu       sync.Mutex
	state    *domain.ConversationState
	timers   map[int]Timer
	nextID   int
	disposed bool
}

// Option configures a Widget.
type Option func(*Widget)

// WithState resumes an existing conversation.
func WithState(state *domain.ConversationState) Option {
	return func(w *Widget) {
		if state != nil {
			w.state = state.Snapshot()
		}
	}
}

// WithDispatcher sets where OPEN_WINDOW and NAVIGATE effects go.
func WithDispatcher(d ports.ActionDispatcher) Option {
	return func(w *Widget) {
		w.dispatcher = d
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(w *Widget) {
		w.scheduler = s
	}
}

// WithObserver registers a state change callback.
func WithObserver(o Observer) Option {
	return func(w *Widget) {
		w.observer = o
	}
}

// WithLogger sets the widget logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Widget) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a closed widget for sessionID.
func New(engine ports.DialogueEngine, sessionID string, opts ...Option) *Widget {
	w := &Widget{
		engine:    engine,
		scheduler: clockScheduler{},
		logger:    logging.NewNop(),
		state:     domain.NewConversation(sessionID),
		timers:    make(map[int]Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns a copy of the current conversation.
func (w *Widget) State() *domain.ConversationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Snapshot()
}

// Disposed reports whether the widget navigated away.
func (w *Widget) Disposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}

// Pending reports whether a deferred render is scheduled.
func (w *Widget) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers) > 0
}

// Toggle opens a closed widget and closes an open one.
func (w *Widget) Toggle(ctx context.Context) error {
	w.mu.Lock()
	open := w.state.Open
	w.mu.Unlock()
	if open {
		return w.Close(ctx)
	}
	return w.Open(ctx)
}

// Open shows the widget, rendering the entry node the first time.
func (w *Widget) Open(ctx context.Context) error {
	return w.transition(ctx, func(s *domain.ConversationState) (*ports.Step, error) {
		return w.engine.Open(ctx, s)
	})
}

// Close hides the widget and cancels pending renders.
func (w *Widget) Close(ctx context.Context) error {
	return w.transition(ctx, func(s *domain.ConversationState) (*ports.Step, error) {
		w.cancelTimersLocked()
		return w.engine.Close(ctx, s)
	})
}

// Select clicks the option at index in the visible block.
func (w *Widget) Select(ctx context.Context, index int) error {
	return w.transition(ctx, func(s *domain.ConversationState) (*ports.Step, error) {
		return w.engine.Select(ctx, s, index)
	})
}

// Submit sends free text.
func (w *Widget) Submit(ctx context.Context, text string) error {
	return w.transition(ctx, func(s *domain.ConversationState) (*ports.Step, error) {
		return w.engine.Submit(ctx, s, text)
	})
}

// Dispose cancels pending work and rejects further interactions.
func (w *Widget) Dispose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disposeLocked()
}

func (w *Widget) disposeLocked() {
	w.cancelTimersLocked()
	w.disposed = true
}

func (w *Widget) transition(ctx context.Context, fn func(*domain.ConversationState) (*ports.Step, error)) error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return ErrDisposed
	}

	prev := w.state
	step, err := fn(prev)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.state = step.State

	deferredID := -1
	if step.Deferred != nil {
		deferredID = w.nextID
		w.nextID++
		w.timers[deferredID] = stopped{}
	}

	for _, a := range step.Actions {
		if a.Type == domain.ActionNavigate {
			w.disposeLocked()
			break
		}
	}
	next := w.state.Snapshot()
	w.mu.Unlock()

	w.notify(prev, next)
	if deferredID >= 0 {
		w.schedule(deferredID, step.Deferred)
	}
	return w.dispatch(ctx, step.Actions)
}

// schedule runs d after its delay. The placeholder registered under id keeps
// a Close that happens before the timer exists from being missed.
func (w *Widget) schedule(id int, d *ports.Deferred) {
	timer := w.scheduler.AfterFunc(d.Delay, func() {
		w.apply(id, d)
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, pending := w.timers[id]; pending {
		w.timers[id] = timer
	} else {
		timer.Stop()
	}
}

func (w *Widget) apply(id int, d *ports.Deferred) {
	w.mu.Lock()
	if _, pending := w.timers[id]; !pending || w.disposed {
		w.mu.Unlock()
		return
	}
	delete(w.timers, id)

	prev := w.state
	next, applied, err := w.engine.Apply(context.Background(), prev, d)
	if err != nil {
		w.mu.Unlock()
		w.logger.Error("deferred render failed", "session_id", prev.SessionID, "error", err)
		return
	}
	if !applied {
		w.mu.Unlock()
		return
	}
	w.state = next
	snapshot := next.Snapshot()
	w.mu.Unlock()

	w.notify(prev, snapshot)
}

func (w *Widget) cancelTimersLocked() {
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}

func (w *Widget) notify(prev, next *domain.ConversationState) {
	if w.observer != nil {
		w.observer(prev, next)
	}
}

func (w *Widget) dispatch(ctx context.Context, actions []domain.ActionRequest) error {
	if w.dispatcher == nil {
		return nil
	}
	var errs []error
	for _, a := range actions {
		if err := w.dispatcher.Dispatch(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("dispatch %s: %w", a.Type, err))
		}
	}
	return errors.Join(errs...)
}
