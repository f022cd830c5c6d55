package depgraph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TopoSort returns node IDs in an order consistent with every edge (From
// before To), breaking ties by insertion order. An Edge{From: a, To: b}
// means "a must be available before b runs" — the dependency-to-dependent
// direction — so gonum's topological order is used directly, with no
// reversal.
//
// Cycles are reported as a StructuralError of Kind "cycle" rather than
// gonum's own topo.Unorderable, keeping every structural failure in this
// package under a single error type.
func TopoSort(g *Graph) ([]string, error) {
	dg := simple.NewDirectedGraph()

	idToNode := make(map[string]int64, len(g.Nodes))
	nodeToID := make(map[int64]string, len(g.Nodes))

	// Insertion order (not sorted) decides tie-breaking: NewNode hands out
	// IDs in creation order, and SortStabilized with a nil order function
	// orders nodes with no relative constraint between them by ID.
	for _, n := range g.Nodes {
		node := dg.NewNode()
		dg.AddNode(node)
		idToNode[n.ID] = node.ID()
		nodeToID[node.ID()] = n.ID
	}

	for _, e := range g.Edges {
		from, ok := idToNode[e.From]
		if !ok {
			continue
		}
		to, ok := idToNode[e.To]
		if !ok {
			continue
		}
		dg.SetEdge(dg.NewEdge(simple.Node(from), simple.Node(to)))
	}

	sorted, err := topo.SortStabilized(dg, nil)
	if err != nil {
		cyclic, ok := err.(topo.Unorderable)
		if !ok || len(cyclic) == 0 {
			return nil, &StructuralError{Kind: "cycle", Msg: "cycle detected"}
		}
		ids := make([]string, 0, len(cyclic[0]))
		for _, n := range cyclic[0] {
			ids = append(ids, nodeToID[n.ID()])
		}
		sort.Strings(ids)
		return nil, &StructuralError{
			Kind: "cycle",
			Msg:  fmt.Sprintf("cycle detected among: %v", ids),
		}
	}

	order := make([]string, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, nodeToID[n.ID()])
	}
	return order, nil
}
