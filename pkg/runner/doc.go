/*
Package runner drives a chat widget from a line-oriented terminal or pipe.

It bridges the dialogue engine and the outside world: it owns the widget,
prints new transcript entries through a pluggable IOHandler, turns typed
lines into option selections or free text and persists the conversation
between runs.

# Key Components

  - Runner: the read-eval loop around a widget.
  - IOHandler: decouples presentation (text, JSON lines) from the loop.
  - TextHandler: interactive terminal implementation.
  - JSONHandler: structured implementation for scripts and tests.

# Usage

	r := runner.NewRunner(
		runner.WithSessionID("user-1"),
		runner.WithStore(store),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}

Typed numbers select the matching visible option, /fechar toggles the
widget and /sair ends the session; anything else is sent as free text.
*/
package runner
