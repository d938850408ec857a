package tree

import (
	"fmt"
	"strings"
)

// Dot renders the tree in Graphviz DOT. Constraint nodes are boxes listing
// their atomics and relations; decision nodes are diamonds.
func Dot(t *DecisionTree) string {
	var b strings.Builder
	b.WriteString("digraph tree {\n")
	b.WriteString("  node [fontname=\"monospace\"];\n")
	if t.Root == nil {
		b.WriteString("  n0 [shape=box, label=\"unsatisfiable\"];\n")
		b.WriteString("}\n")
		return b.String()
	}
	next := 0
	id := func() string {
		s := fmt.Sprintf("n%d", next)
		next++
		return s
	}

	var constraint func(n *ConstraintNode) string
	constraint = func(n *ConstraintNode) string {
		self := id()
		var lines []string
		for _, a := range n.Atomics {
			lines = append(lines, a.Source)
		}
		for _, r := range n.Relations {
			lines = append(lines, r.String())
		}
		if len(lines) == 0 {
			lines = []string{"AND"}
		}
		fmt.Fprintf(&b, "  %s [shape=box, label=%q];\n", self, strings.Join(lines, "\n"))
		for _, d := range n.Decisions {
			dec := id()
			fmt.Fprintf(&b, "  %s [shape=diamond, label=\"OR\"];\n", dec)
			fmt.Fprintf(&b, "  %s -> %s;\n", self, dec)
			for _, option := range d.Options {
				child := constraint(option)
				fmt.Fprintf(&b, "  %s -> %s;\n", dec, child)
			}
		}
		return self
	}
	constraint(t.Root)
	b.WriteString("}\n")
	return b.String()
}
