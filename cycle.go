package flow

import (
	"github.com/dominikbraun/graph"
)

// CycleResult is the result of a full cycle detection pass.
type CycleResult struct {
	HasCycle bool
	// CycleNodes are the IDs of the nodes on the first cycle found.
	CycleNodes []string
	// CyclePath is the cycle in traversal order, starting and ending
	// at the same node, e.g. [a b c a].
	CyclePath []string
}

type color int

const (
	white color = iota // unvisited
	gray               // on the DFS stack
	black              // finished
)

// DetectCycles runs a three-color depth-first search over every node.
// Each node is used as a DFS root in insertion order unless it has
// already been visited, so disconnected components are covered.
//
// Self-loops are ignored: they are rejected by the connection rules and
// reported as invalid connections by the validator.
func DetectCycles(g *Graph) CycleResult {
	colors := map[string]color{}
	parent := map[string]string{}

	var res CycleResult
	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		for _, e := range g.Outgoing(id) {
			next := e.Target
			if next == id {
				continue
			}
			switch colors[next] {
			case gray:
				// back edge: walk the parent pointers from the current
				// node back to the node we've re-encountered.
				path := []string{id}
				for cur := id; cur != next; {
					cur = parent[cur]
					path = append(path, cur)
				}
				// path is reversed: [id ... next]
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				res.HasCycle = true
				res.CycleNodes = append([]string(nil), path...)
				res.CyclePath = append(path, next)
				return true
			case white:
				parent[next] = id
				if visit(next) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for _, n := range g.Nodes() {
		if colors[n.ID] != white {
			continue
		}
		if visit(n.ID) {
			break
		}
	}
	return res
}

// WouldCreateCycle returns true if adding an edge from source to target
// would close a cycle, i.e. if target can already reach source.
// It is a cheap check for interactive use, without a full DetectCycles pass.
func WouldCreateCycle(g *Graph, source, target string) bool {
	if source == target {
		return true
	}
	creates, err := graph.CreatesCycle(g.Digraph(), source, target)
	if err != nil {
		// one of the vertices doesn't exist, so no cycle can be formed.
		return false
	}
	return creates
}
