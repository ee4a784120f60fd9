package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
	"golang.org/x/term"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	source      io.Reader
	interactive bool // true if reading from a terminal, where EOF may be transient
	Reader      *bufio.Reader
	Writer      io.Writer
	Renderer    ContentRenderer

	mu        sync.Mutex // serializes writes
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		source:      r,
		interactive: isTerminal(r),
		Writer:      w,
	}
	h.Reader = bufio.NewReader(h.source)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsInteractive reports whether input comes from a terminal.
func (h *TextHandler) IsInteractive() bool {
	return h.interactive
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				if h.interactive {
					// A signal may interrupt a terminal read without closing it.
					h.inputChan <- inputResult{err: io.EOF}
					time.Sleep(50 * time.Millisecond)
					continue
				}
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Show prints bot messages and numbered option blocks. User messages are
// skipped: the terminal already echoed them.
func (h *TextHandler) Show(ctx context.Context, entries []domain.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range entries {
		switch {
		case e.Kind == domain.EntryOptions:
			for i, opt := range e.Options {
				fmt.Fprintf(h.Writer, "  [%d] %s\n", i+1, opt.Label)
			}
		case e.Sender == domain.SenderBot:
			output := e.Text
			if h.Renderer != nil {
				if rendered, err := h.Renderer(e.Text); err == nil {
					output = rendered
				}
			}
			fmt.Fprintln(h.Writer, strings.TrimSpace(output))
		}
	}
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		h.mu.Lock()
		fmt.Fprint(h.Writer, "> ")
		h.mu.Unlock()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return SanitizeInput(strings.TrimSpace(res.text))
	}
}

// SystemOutput prints a bracketed meta-message.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.Writer, "[Sistema] %s\n", msg)
	return nil
}
