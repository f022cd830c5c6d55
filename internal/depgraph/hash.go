package depgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ComputeHash returns a stable hash of the graph's shape — its node IDs and
// edges only. It is used to detect whether a sub-plan's dependency
// structure changed between runs; process parameters and source content
// are hashed separately by the planner.
func ComputeHash(g *Graph) (string, error) {
	normalized := g.Normalized()
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
