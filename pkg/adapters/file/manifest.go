package file

import (
	"fmt"
	"os"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// LoadManifest reads a YAML or JSON precache manifest from disk.
func LoadManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a manifest, filling in the default generation and
// fallback page when they are omitted.
func ParseManifest(data []byte) (*domain.Manifest, error) {
	var m domain.Manifest
	if err := decode(data, &m); err != nil {
		return nil, err
	}
	if m.Version == "" {
		m.Version = domain.DefaultGeneration
	}
	if m.Fallback == "" {
		m.Fallback = domain.DefaultFallback
	}
	if len(m.Entries) == 0 {
		return nil, fmt.Errorf("manifest %s has no entries", m.Version)
	}
	return &m, nil
}
