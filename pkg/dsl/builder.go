package dsl

import (
	"fmt"

	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	"github.com/aretw0/carpintaria/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	entry string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder whose entry node is "start".
func New() *Builder {
	return &Builder{
		entry: domain.DefaultEntryNode,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Entry changes the node rendered when a conversation starts.
func (b *Builder) Entry(id string) *Builder {
	b.entry = id
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles the graph into a MemoryLoader. Structural checks happen
// when the loader is compiled by the engine.
func (b *Builder) Build() (*memory.Loader, error) {
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("entry node %q was never added", b.entry)
	}

	nodes := make([]domain.Node, 0, len(b.nodes))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].node)
	}

	loader, err := memory.NewFromNodes(nodes...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}

	return loader.WithEntry(b.entry), nil
}
