package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventAction    EventType = "action"
	EventFreeText  EventType = "free_text"
	EventIntercept EventType = "intercept"
	EventInstall   EventType = "install"
	EventActivate  EventType = "activate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// NodeEvent is emitted when a node is rendered.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// ActionEvent is emitted when a selected option triggers an action.
type ActionEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Kind   string `json:"kind"`
	Label  string `json:"label"`
}

// LifecycleHooks defines callbacks for dialogue observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnAction    func(context.Context, *ActionEvent)
	OnFreeText  func(context.Context, *EventBase)
}

// Intercept outcomes.
const (
	OutcomeNetwork     = "network"
	OutcomeCacheHit    = "cache_hit"
	OutcomeFallback    = "offline_fallback"
	OutcomeMiss        = "miss"
	OutcomePassthrough = "passthrough"
)

// InterceptEvent describes how one request was resolved by the cache controller.
type InterceptEvent struct {
	EventBase
	Generation string `json:"generation"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Outcome    string `json:"outcome"`
}

// GenerationEvent describes an install or activation.
type GenerationEvent struct {
	EventBase
	Generation string   `json:"generation"`
	Entries    int      `json:"entries,omitempty"`
	Evicted    []string `json:"evicted,omitempty"`
	Err        error    `json:"-"`
}

// CacheHooks defines callbacks for cache controller observability.
type CacheHooks struct {
	OnIntercept  func(context.Context, *InterceptEvent)
	OnInstall    func(context.Context, *GenerationEvent)
	OnActivate   func(context.Context, *GenerationEvent)
	OnWriteError func(context.Context, *InterceptEvent, error)
}
