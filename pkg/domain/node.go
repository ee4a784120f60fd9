package domain

// Node is one turn of the scripted dialogue: a message plus the options
// offered after it. A node without options is a terminal.
type Node struct {
	ID      string   `json:"id" yaml:"id"`
	Message string   `json:"message" yaml:"message"`
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsTerminal reports whether the node offers no way forward.
func (n *Node) IsTerminal() bool {
	return len(n.Options) == 0
}

// Graph is the static conversation graph. It is built once at load time and
// never edited afterwards.
type Graph struct {
	// Entry is the node rendered when a conversation starts.
	Entry string `json:"entry"`

	// Nodes indexed by ID.
	Nodes map[string]*Node `json:"nodes"`
}

// NewGraph creates an empty graph with the given entry node.
func NewGraph(entry string) *Graph {
	if entry == "" {
		entry = DefaultEntryNode
	}
	return &Graph{
		Entry: entry,
		Nodes: make(map[string]*Node),
	}
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, error) {
	n, ok := g.Nodes[id]
	if !ok {
		return nil, &NodeNotFoundError{NodeID: id}
	}
	return n, nil
}

// DefaultEntryNode is the conventional name of the entry node.
const DefaultEntryNode = "start"
