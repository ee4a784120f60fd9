package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// Parser is responsible for converting raw bytes into a Node.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a JSON node definition. Options use the flat graph-file form
// and are checked for completeness while decoding.
func (p *Parser) Parse(data []byte) (*domain.Node, error) {
	var node domain.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse node: %w", err)
	}
	if node.ID == "" {
		return nil, fmt.Errorf("node missing ID")
	}
	return &node, nil
}
