package depgraph

import "sort"

// Normalize sorts nodes by ID and edges by (from, to) in place, and returns
// the graph for chaining. Deterministic ordering is required for
// ComputeHash to be stable regardless of construction order.
func (g *Graph) Normalize() *Graph {
	sort.Slice(g.Nodes, func(i, j int) bool {
		return g.Nodes[i].ID < g.Nodes[j].ID
	})
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	return g
}

// Normalized returns a normalized copy without modifying the receiver.
func (g *Graph) Normalized() *Graph {
	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	cp := &Graph{Nodes: nodes, Edges: edges}
	return cp.Normalize()
}
