package compiler

import (
	"fmt"

	"github.com/aretw0/carpintaria/internal/validator"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
)

// LoadGraph reads every node from the loader, assembles the graph and
// validates it. The entry node comes from the loader when it implements
// ports.EntryNoder, otherwise domain.DefaultEntryNode is used.
func LoadGraph(loader ports.GraphLoader) (*domain.Graph, error) {
	entry := domain.DefaultEntryNode
	if en, ok := loader.(ports.EntryNoder); ok && en.EntryNode() != "" {
		entry = en.EntryNode()
	}

	ids, err := loader.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	parser := NewParser()
	graph := domain.NewGraph(entry)
	for _, id := range ids {
		raw, err := loader.GetNode(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load node %s: %w", id, err)
		}
		node, err := parser.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		graph.Nodes[id] = node
	}

	if err := validator.ValidateGraph(graph); err != nil {
		return nil, err
	}
	return graph, nil
}
