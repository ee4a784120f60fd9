package domain

import (
	"net/http"
	"time"
)

// ControllerState is the lifecycle of an offline cache controller.
type ControllerState string

const (
	ControllerInstalling ControllerState = "installing"
	ControllerInstalled  ControllerState = "installed"
	ControllerActive     ControllerState = "active"
	ControllerTerminated ControllerState = "terminated"
)

// DefaultGeneration is the cache generation shipped with the default manifest.
const DefaultGeneration = "carpintaria-os-v4.5"

// Manifest is the fixed list of resources precached at install time.
type Manifest struct {
	// Version names the cache generation. Bumping it invalidates every
	// previously cached entry.
	Version string `json:"version" yaml:"version" mapstructure:"version"`

	// Entries are paths (resolved against the origin) or absolute URLs.
	Entries []string `json:"entries" yaml:"entries" mapstructure:"entries"`

	// Fallback is served to HTML requests that miss both network and cache.
	Fallback string `json:"fallback" yaml:"fallback" mapstructure:"fallback"`
}

// CacheEntry is a stored response, keyed by the fully qualified request URL.
type CacheEntry struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// DefaultFallback is the page served to offline navigations.
const DefaultFallback = "/static/Entrada.html"
