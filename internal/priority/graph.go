package priority

import (
	"sort"
	"strings"

	"projector/pkg/logging"
)

// Node is one pattern in a containment graph.
type Node struct {
	Pattern        string
	Representative string

	// Parents are the broader patterns whose expression matches this node's
	// representative; Children is the inverse relation.
	Parents  []string
	Children []string

	// Invalid is set when the pattern could not be compiled. Invalid nodes
	// never have children.
	Invalid bool
}

// Graph is the containment relation over a fixed pattern set. It is built
// once and then only read, so it is safe for concurrent readers.
type Graph struct {
	nodes     map[string]*Node
	ancestors map[string]int
}

// NewGraph builds the containment graph of patterns. Duplicates are ignored.
// A pattern P is a parent of C when P matches C's representative and the two
// representatives differ (ignoring case). A parent's representative is
// therefore strictly shorter than its child's and the graph is acyclic.
func NewGraph(patterns []string) *Graph {
	g := &Graph{
		nodes:     make(map[string]*Node, len(patterns)),
		ancestors: make(map[string]int, len(patterns)),
	}

	ordered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if _, ok := g.nodes[p]; ok {
			continue
		}
		g.nodes[p] = &Node{Pattern: p, Representative: Representative(p)}
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	for _, parent := range ordered {
		pn := g.nodes[parent]
		re, err := Compile(parent)
		if err != nil {
			logging.Warn("Priority", "Pattern %q cannot be compiled, treating it as having no children: %v", parent, err)
			pn.Invalid = true
			continue
		}
		for _, child := range ordered {
			cn := g.nodes[child]
			if child == parent || strings.EqualFold(pn.Representative, cn.Representative) {
				continue
			}
			if re.MatchString(cn.Representative) {
				pn.Children = append(pn.Children, child)
				cn.Parents = append(cn.Parents, parent)
			}
		}
	}

	for _, p := range ordered {
		g.ancestors[p] = g.countAncestors(p)
	}

	return g
}

// Get returns a copy of the node for pattern, or nil if it is not in the graph.
func (g *Graph) Get(pattern string) *Node {
	n, ok := g.nodes[pattern]
	if !ok {
		return nil
	}
	copied := *n
	copied.Parents = append([]string(nil), n.Parents...)
	copied.Children = append([]string(nil), n.Children...)
	return &copied
}

// Patterns returns every pattern in the graph, sorted.
func (g *Graph) Patterns() []string {
	out := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Parents returns the direct broader patterns of pattern.
func (g *Graph) Parents(pattern string) []string {
	if n, ok := g.nodes[pattern]; ok {
		return append([]string(nil), n.Parents...)
	}
	return nil
}

// Children returns the narrower patterns of pattern.
func (g *Graph) Children(pattern string) []string {
	if n, ok := g.nodes[pattern]; ok {
		return append([]string(nil), n.Children...)
	}
	return nil
}

// Descendants walks the children of pattern breadth first. The result is
// deduplicated, excludes pattern itself and is deterministic.
func (g *Graph) Descendants(pattern string) []string {
	seen := map[string]bool{pattern: true}
	queue := g.Children(pattern)
	var out []string

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.nodes[next].Children...)
	}
	return out
}

// AncestorCount returns how many distinct patterns are transitively broader
// than pattern.
func (g *Graph) AncestorCount(pattern string) int {
	return g.ancestors[pattern]
}

func (g *Graph) countAncestors(pattern string) int {
	seen := map[string]bool{pattern: true}
	stack := append([]string(nil), g.nodes[pattern].Parents...)
	count := 0
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[p] {
			continue
		}
		seen[p] = true
		count++
		stack = append(stack, g.nodes[p].Parents...)
	}
	return count
}
