package depgraph

import (
	"fmt"
	"sort"
)

// Validate checks for duplicate node IDs, dangling edges, and
// self-referential edges. Cycle detection is left to TopoSort, since gonum's
// topological sort already reports cycles and there is no value in running
// two independent cycle detectors over the same graph.
func Validate(g *Graph) error {
	nodeIDs := make(map[string]bool, len(g.Nodes))
	sortedNodes := make([]Node, len(g.Nodes))
	copy(sortedNodes, g.Nodes)
	sort.Slice(sortedNodes, func(i, j int) bool {
		return sortedNodes[i].ID < sortedNodes[j].ID
	})

	for _, node := range sortedNodes {
		if nodeIDs[node.ID] {
			return &StructuralError{
				Kind: "duplicate_id",
				Msg:  fmt.Sprintf("duplicate node ID: %q", node.ID),
			}
		}
		nodeIDs[node.ID] = true
	}

	sortedEdges := make([]Edge, len(g.Edges))
	copy(sortedEdges, g.Edges)
	sort.Slice(sortedEdges, func(i, j int) bool {
		if sortedEdges[i].From != sortedEdges[j].From {
			return sortedEdges[i].From < sortedEdges[j].From
		}
		return sortedEdges[i].To < sortedEdges[j].To
	})

	for _, edge := range sortedEdges {
		if edge.From == edge.To {
			return &StructuralError{
				Kind: "self_reference",
				Msg:  fmt.Sprintf("self-referential edge: %q -> %q", edge.From, edge.To),
			}
		}
		if !nodeIDs[edge.From] {
			return &StructuralError{
				Kind: "dangling_edge",
				Msg:  fmt.Sprintf("edge references unknown node: %q", edge.From),
			}
		}
		if !nodeIDs[edge.To] {
			return &StructuralError{
				Kind: "dangling_edge",
				Msg:  fmt.Sprintf("edge references unknown node: %q", edge.To),
			}
		}
	}

	return nil
}
