package validator

import (
	"sort"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// ValidateGraph checks a conversation graph for structural defects:
// a missing entry node, next targets that do not exist, incomplete actions,
// and nodes with options from which the entry node cannot be reached again.
// All defects are reported at once in an *AggregateError.
func ValidateGraph(g *domain.Graph) error {
	var errs []error

	if g == nil {
		return &AggregateError{Errors: []error{&ValidationError{Reason: "graph is nil"}}}
	}
	if _, ok := g.Nodes[g.Entry]; !ok {
		errs = append(errs, &ValidationError{NodeID: g.Entry, Reason: "entry node is not defined"})
	}

	// Reverse adjacency for the path-back-to-entry check.
	incoming := make(map[string][]string)

	for _, id := range sortedIDs(g) {
		node := g.Nodes[id]
		if node == nil {
			errs = append(errs, &ValidationError{NodeID: id, Reason: "node is nil"})
			continue
		}
		if node.ID != id {
			errs = append(errs, &ValidationError{NodeID: id, Reason: "node id does not match its key " + node.ID})
		}
		if node.Message == "" {
			errs = append(errs, &ValidationError{NodeID: id, Reason: "message is empty"})
		}

		for _, opt := range node.Options {
			if opt.Label == "" {
				errs = append(errs, &ValidationError{NodeID: id, Reason: "option without text"})
			}
			switch a := opt.Action.(type) {
			case domain.Next:
				if _, ok := g.Nodes[a.NodeID]; !ok {
					errs = append(errs, &ValidationError{NodeID: id, Option: opt.Label, Reason: "next points to undefined node " + a.NodeID})
					continue
				}
				incoming[a.NodeID] = append(incoming[a.NodeID], id)
			case domain.OpenLink:
				if a.URL == "" {
					errs = append(errs, &ValidationError{NodeID: id, Option: opt.Label, Reason: "link without url"})
				}
			case domain.Navigate:
				if a.URL == "" {
					errs = append(errs, &ValidationError{NodeID: id, Option: opt.Label, Reason: "goto without url"})
				}
			case domain.OpenMessaging:
				if a.Text == "" {
					errs = append(errs, &ValidationError{NodeID: id, Option: opt.Label, Reason: "whatsapp without message"})
				}
			default:
				errs = append(errs, &ValidationError{NodeID: id, Option: opt.Label, Reason: "option has no action"})
			}
		}
	}

	if _, ok := g.Nodes[g.Entry]; ok {
		canReturn := reverseReach(g.Entry, incoming)
		for _, id := range sortedIDs(g) {
			node := g.Nodes[id]
			if node == nil || node.IsTerminal() || canReturn[id] {
				continue
			}
			errs = append(errs, &ValidationError{NodeID: id, Reason: "no path back to entry node " + g.Entry})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Unreachable lists nodes that cannot be reached from the entry node.
// They are not errors, but usually indicate a typo in a next target.
func Unreachable(g *domain.Graph) []string {
	visited := map[string]bool{}
	queue := []string{g.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		node, ok := g.Nodes[id]
		if !ok || node == nil {
			continue
		}
		for _, opt := range node.Options {
			if next, ok := opt.Action.(domain.Next); ok && !visited[next.NodeID] {
				queue = append(queue, next.NodeID)
			}
		}
	}

	var out []string
	for _, id := range sortedIDs(g) {
		if !visited[id] {
			out = append(out, id)
		}
	}
	return out
}

// reverseReach walks incoming edges from target and returns every node that
// has a path to it.
func reverseReach(target string, incoming map[string][]string) map[string]bool {
	seen := map[string]bool{target: true}
	queue := []string{target}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, from := range incoming[id] {
			if !seen[from] {
				seen[from] = true
				queue = append(queue, from)
			}
		}
	}
	return seen
}

func sortedIDs(g *domain.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
