package file

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/aretw0/carpintaria/pkg/domain"
)

type graphDocument struct {
	Entry string                  `mapstructure:"entry"`
	Nodes map[string]nodeDocument `mapstructure:"nodes"`
}

type nodeDocument struct {
	Message string             `mapstructure:"message"`
	Options []domain.RawOption `mapstructure:"options"`
}

// Loader implements ports.GraphLoader over a single graph document:
//
//	entry: start
//	nodes:
//	  start:
//	    message: "Olá!"
//	    options:
//	      - text: "Ver Plataformas"
//	        next: platforms
//	      - text: "Site"
//	        action: link
//	        url: https://example.com
type Loader struct {
	entry string
	nodes map[string][]byte
}

// LoadGraphFile reads a YAML or JSON graph document from disk.
func LoadGraphFile(path string) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	l, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ParseGraph builds a Loader from a graph document. Options are checked for
// completeness here; cross-node references are left to graph validation.
func ParseGraph(data []byte) (*Loader, error) {
	var doc graphDocument
	if err := decode(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}

	l := &Loader{entry: doc.Entry, nodes: make(map[string][]byte, len(doc.Nodes))}
	for id, nd := range doc.Nodes {
		node := domain.Node{ID: id, Message: nd.Message}
		for i, raw := range nd.Options {
			opt, err := raw.Option()
			if err != nil {
				return nil, fmt.Errorf("node %s option %d: %w", id, i, err)
			}
			node.Options = append(node.Options, opt)
		}
		encoded, err := json.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("failed to encode node %s: %w", id, err)
		}
		l.nodes[id] = encoded
	}
	return l, nil
}

// EntryNode implements ports.EntryNoder.
func (l *Loader) EntryNode() string {
	return l.entry
}

// GetNode returns the JSON definition of a node.
func (l *Loader) GetNode(id string) ([]byte, error) {
	raw, ok := l.nodes[id]
	if !ok {
		return nil, &domain.NodeNotFoundError{NodeID: id}
	}
	return raw, nil
}

// ListNodes returns all node IDs in sorted order.
func (l *Loader) ListNodes() ([]string, error) {
	ids := make([]string, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
