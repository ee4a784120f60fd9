package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrEntryNotFound is returned when a cache generation holds no entry for a key.
var ErrEntryNotFound = errors.New("cache entry not found")

// ErrOptionNotAvailable is returned when a selection does not match the
// currently visible option block.
var ErrOptionNotAvailable = errors.New("option not available")

// ErrNoGeneration is returned when the cache holds no usable generation.
var ErrNoGeneration = errors.New("no cached generation")

// ErrInstallFailed wraps precache failures.
var ErrInstallFailed = errors.New("install failed")

// ErrNodeNotFound is matched by NodeNotFoundError via errors.Is.
var ErrNodeNotFound = errors.New("node not found")

// NodeNotFoundError reports a reference to an undefined node.
type NodeNotFoundError struct {
	NodeID string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.NodeID)
}

func (e *NodeNotFoundError) Is(target error) bool {
	return target == ErrNodeNotFound
}
