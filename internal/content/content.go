// Package content embeds the default conversation graph and precache manifest.
package content

import (
	_ "embed"

	"github.com/aretw0/carpintaria/internal/compiler"
	"github.com/aretw0/carpintaria/pkg/adapters/file"
	"github.com/aretw0/carpintaria/pkg/domain"
)

//go:embed chat.yaml
var ChatYAML []byte

//go:embed offline.yaml
var OfflineYAML []byte

// DefaultGraph parses and validates the embedded conversation graph.
func DefaultGraph() (*domain.Graph, error) {
	loader, err := file.ParseGraph(ChatYAML)
	if err != nil {
		return nil, err
	}
	return compiler.LoadGraph(loader)
}

// DefaultManifest parses the embedded precache manifest.
func DefaultManifest() (*domain.Manifest, error) {
	return file.ParseManifest(OfflineYAML)
}
