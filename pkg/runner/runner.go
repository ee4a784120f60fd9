package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/aretw0/carpintaria/pkg/widget"
)

// Commands recognized by the loop.
const (
	CommandQuit   = "/sair"
	CommandToggle = "/fechar"
)

// maxRenderWait bounds how long the loop waits for a deferred render before prompting again.
const maxRenderWait = 5 * time.Second

// Runner handles the read-eval loop of one chat session.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store is the persistence adapter. If nil, sessions are ephemeral.
	Store ports.StateStore

	SessionID  string
	Scheduler  widget.Scheduler
	Dispatcher ports.ActionDispatcher
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:    logging.NewNop(),
		SessionID: "local",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run opens the widget and processes input until EOF, /sair, a navigation
// away from the conversation, or ctx cancellation.
func (r *Runner) Run(ctx context.Context, engine ports.DialogueEngine) error {
	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}

	updates := make(chan struct{}, 1)
	opts := []widget.Option{
		widget.WithState(state),
		widget.WithLogger(r.Logger),
		widget.WithDispatcher(ports.DispatcherFunc(r.dispatch)),
		widget.WithObserver(func(prev, next *domain.ConversationState) {
			if err := r.Handler.Show(ctx, newEntries(prev, next)); err != nil {
				r.Logger.Warn("failed to show entries", "error", err)
			}
			select {
			case updates <- struct{}{}:
			default:
			}
		}),
	}
	if r.Scheduler != nil {
		opts = append(opts, widget.WithScheduler(r.Scheduler))
	}
	w := widget.New(engine, r.SessionID, opts...)
	defer w.Dispose()

	if len(state.Transcript) > 0 {
		// Resumed conversation: show where it stopped.
		_ = r.Handler.Show(ctx, lastRender(state))
	}
	if err := w.Open(ctx); err != nil {
		return fmt.Errorf("failed to open chat: %w", err)
	}

	for !w.Disposed() {
		waitForRender(ctx, w, updates)

		line, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				break
			}
			if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
				_ = r.Handler.SystemOutput(ctx, err.Error())
				continue
			}
			return fmt.Errorf("input error: %w", err)
		}

		quit, err := r.handleLine(ctx, w, line)
		if err != nil {
			return err
		}
		if quit {
			break
		}
		r.save(ctx, w.State())
	}

	waitForRender(ctx, w, updates)
	r.save(ctx, w.State())
	return nil
}

func (r *Runner) handleLine(ctx context.Context, w *widget.Widget, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == CommandQuit:
		return true, nil
	case line == CommandToggle:
		return false, w.Toggle(ctx)
	}

	if n, err := strconv.Atoi(line); err == nil {
		err := w.Select(ctx, n-1)
		if errors.Is(err, domain.ErrOptionNotAvailable) {
			return false, r.Handler.SystemOutput(ctx, fmt.Sprintf("Opção %d indisponível.", n))
		}
		if err != nil && !errors.Is(err, widget.ErrDisposed) {
			r.Logger.Warn("select failed", "error", err)
		}
		return false, nil
	}

	if !w.State().Open {
		if err := w.Open(ctx); err != nil {
			return false, err
		}
	}
	return false, w.Submit(ctx, line)
}

func (r *Runner) dispatch(ctx context.Context, req domain.ActionRequest) error {
	var msg string
	switch req.Type {
	case domain.ActionOpenWindow:
		msg = "Abrir em nova janela: " + req.URL()
	case domain.ActionNavigate:
		msg = "Navegar para: " + req.URL()
	default:
		msg = fmt.Sprintf("%s: %v", req.Type, req.Payload)
	}
	if err := r.Handler.SystemOutput(ctx, msg); err != nil {
		return err
	}
	if r.Dispatcher != nil {
		return r.Dispatcher.Dispatch(ctx, req)
	}
	return nil
}

func (r *Runner) loadState(ctx context.Context) (*domain.ConversationState, error) {
	if r.Store == nil {
		return domain.NewConversation(r.SessionID), nil
	}
	state, err := r.Store.Load(ctx, r.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewConversation(r.SessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", r.SessionID, err)
	}
	return state, nil
}

func (r *Runner) save(ctx context.Context, state *domain.ConversationState) {
	if r.Store == nil {
		return
	}
	if err := r.Store.Save(context.WithoutCancel(ctx), r.SessionID, state); err != nil {
		r.Logger.Error("failed to save session", "session_id", r.SessionID, "error", err)
	}
}

func waitForRender(ctx context.Context, w *widget.Widget, updates <-chan struct{}) {
	deadline := time.After(maxRenderWait)
	for w.Pending() {
		select {
		case <-updates:
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// newEntries returns what a terminal has not shown yet: new messages and,
// when it changed, the option block.
func newEntries(prev, next *domain.ConversationState) []domain.Entry {
	var out []domain.Entry
	prevMsgs := 0
	if prev != nil {
		prevMsgs = len(prev.Messages())
	}
	msgs := next.Messages()
	if prevMsgs < len(msgs) {
		out = append(out, msgs[prevMsgs:]...)
	}

	opts := next.VisibleOptions()
	var prevOpts []domain.Option
	if prev != nil {
		prevOpts = prev.VisibleOptions()
	}
	if len(opts) > 0 && (!reflect.DeepEqual(opts, prevOpts) || prev.CurrentNodeID != next.CurrentNodeID) {
		out = append(out, domain.Entry{Kind: domain.EntryOptions, Options: opts})
	}
	return out
}

// lastRender is the last bot message plus the visible options.
func lastRender(state *domain.ConversationState) []domain.Entry {
	var out []domain.Entry
	for i := len(state.Transcript) - 1; i >= 0; i-- {
		e := state.Transcript[i]
		if e.Kind == domain.EntryMessage && e.Sender == domain.SenderBot {
			out = append(out, e)
			break
		}
	}
	if opts := state.VisibleOptions(); len(opts) > 0 {
		out = append(out, domain.Entry{Kind: domain.EntryOptions, Options: opts})
	}
	return out
}

// Compile-time check.
var _ IOHandler = (*TextHandler)(nil)
var _ IOHandler = (*JSONHandler)(nil)
