/*
Package carpintaria is the toolkit behind the Carpintaria Digital site: a
scripted, menu-driven chat widget and an offline cache that keeps the site
usable when the network is gone.

# Chat

The dialogue engine walks a static conversation graph. Every transition is a
pure function over a ConversationState; rendering that should look like the
bot is typing is returned as deferred work the host applies later.

	eng, err := carpintaria.New() // embedded default graph
	if err != nil {
		log.Fatal(err)
	}

	w := widget.New(eng, "session-1", widget.WithObserver(func(prev, next *domain.ConversationState) {
		// redraw
	}))
	_ = w.Open(ctx)
	_ = w.Select(ctx, 0)

Hosts without timers (HTTP, MCP) use session.Manager.Transition, which applies
deferred renders eagerly and reports their delay.

# Offline cache

The offline package (used by "carpintaria serve" and "carpintaria precache")
is an http.RoundTripper that prefers the network and falls back to a
versioned cache generation, then to an offline page for HTML navigations.
*/
package carpintaria
