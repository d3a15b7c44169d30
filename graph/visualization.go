package graph

import (
	"fmt"
	"sort"
	"strings"
)

// DrawMermaid renders the compiled graph as a Mermaid flowchart. Conditional
// edges are drawn dotted to the targets declared with AddConditionalEdge.
func (r *Runnable[S]) DrawMermaid() string {
	g := r.graph
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	sb.WriteString("    START([\"START\"])\n")
	for _, name := range g.order {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", name, name))
	}
	sb.WriteString("    END([\"END\"])\n")
	sb.WriteString(fmt.Sprintf("    START --> %s\n", g.entryPoint))
	for _, e := range g.edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", e.From, e.To))
	}

	froms := make([]string, 0, len(g.branchTargets))
	for from := range g.branchTargets {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		for _, to := range g.branchTargets[from] {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", from, to))
		}
	}
	return sb.String()
}
