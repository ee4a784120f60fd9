package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// GraphOverlay contains conversation data to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a conversation graph.
// Shapes:
// - Entry: ((Circle))
// - Terminal: ([Stadium])
// - Default: [Rectangle]
// Option edges are labelled with the option text. Actions that leave the
// conversation point at hexagon nodes named after their target.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	external := 0
	for _, id := range ids {
		node := g.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == g.Entry:
			opener, closer = "((", "))"
		case node.IsTerminal():
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(id), closer)

		for _, opt := range node.Options {
			label := escape(opt.Label)
			switch a := opt.Action.(type) {
			case domain.Next:
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(a.NodeID))
			default:
				external++
				target := fmt.Sprintf("ext_%d", external)
				fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s{{\"%s: %s\"}}\n", safeID, label, target, a.Kind(), escape(actionTarget(a)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func actionTarget(a domain.Action) string {
	switch a := a.(type) {
	case domain.OpenLink:
		return a.URL
	case domain.Navigate:
		return a.URL
	case domain.OpenMessaging:
		return a.Text
	}
	return ""
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
