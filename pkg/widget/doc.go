// Package widget hosts one chat conversation.
//
// A Widget serializes user interactions, runs the engine's deferred renders
// on a Scheduler (real timers by default) and forwards side effects such as
// opening a window to an ActionDispatcher. Closing the widget cancels pending
// renders; a Navigate action disposes it.
package widget
