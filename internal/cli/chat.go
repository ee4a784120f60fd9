package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/carpintaria/internal/config"
	"github.com/aretw0/carpintaria/internal/presentation/tui"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/metrics"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/aretw0/carpintaria/pkg/widget"
)

// ChatOptions configures an interactive chat session.
type ChatOptions struct {
	SessionID string
	// JSON switches to NDJSON input/output.
	JSON bool
	// Immediate skips typing delays.
	Immediate bool
	// OpenBrowser opens links with the system URL handler.
	OpenBrowser bool

	In  io.Reader
	Out io.Writer
}

// RunChat opens the chat widget in the terminal and runs it until the user
// quits or the conversation navigates away.
func RunChat(ctx context.Context, cfg *config.Config, opts ChatOptions, logger *slog.Logger) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	hooks := domain.LifecycleHooks{}
	if logger.Enabled(ctx, slog.LevelDebug) {
		hooks = metrics.New(nil).LifecycleHooks(logger)
	}
	engine, err := NewEngine(cfg.Chat, hooks, logger)
	if err != nil {
		return err
	}

	stores, err := OpenStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		text := runner.NewTextHandler(opts.In, opts.Out, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		if text.IsInteractive() {
			tui.PrintBanner(opts.Out)
		}
		handler = text
	}

	runOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
	}
	if opts.SessionID != "" {
		runOpts = append(runOpts,
			runner.WithSessionID(opts.SessionID),
			runner.WithStore(stores.Sessions),
		)
	}
	if opts.OpenBrowser {
		runOpts = append(runOpts, runner.WithDispatcher(BrowserDispatcher()))
	}
	if opts.Immediate {
		runOpts = append(runOpts, runner.WithScheduler(widget.ImmediateScheduler{}))
	}

	return runner.NewRunner(runOpts...).Run(ctx, engine)
}
