package ports

// GraphLoader defines how the engine retrieves node definitions.
// This allows the storage layer (files, memory) to be decoupled.
type GraphLoader interface {
	// GetNode retrieves the raw definition of a node by ID.
	// It returns the raw bytes (which the compiler will parse) or an error.
	GetNode(id string) ([]byte, error)

	// ListNodes returns the IDs of every node available in the graph.
	ListNodes() ([]string, error)
}

// EntryNoder is implemented by loaders whose source declares the entry node.
type EntryNoder interface {
	EntryNode() string
}
