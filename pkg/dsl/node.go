package dsl

import "github.com/aretw0/carpintaria/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Say sets the bot message rendered when the node is entered.
func (n *NodeBuilder) Say(message string) *NodeBuilder {
	n.node.Message = message
	return n
}

// Go adds an option that moves the conversation to the target node.
func (n *NodeBuilder) Go(label, target string) *NodeBuilder {
	return n.option(label, domain.Next{NodeID: target})
}

// Link adds an option that opens url in a new window.
func (n *NodeBuilder) Link(label, url string) *NodeBuilder {
	return n.option(label, domain.OpenLink{URL: url})
}

// Navigate adds an option that leaves the conversation for url.
func (n *NodeBuilder) Navigate(label, url string) *NodeBuilder {
	return n.option(label, domain.Navigate{URL: url})
}

// Message adds an option that opens the messaging app prefilled with text.
func (n *NodeBuilder) Message(label, text string) *NodeBuilder {
	return n.option(label, domain.OpenMessaging{Text: text})
}

func (n *NodeBuilder) option(label string, action domain.Action) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.Option{Label: label, Action: action})
	return n
}

// Terminal removes every option, ending the conversation at this node.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Options = nil
	return n
}

// Add starts another node on the same builder.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
