package graph

import "github.com/latticebuild/critpath/internal/errs"

// CriticalPathStep pairs a position in the critical path (root = 0) with
// the vertex occupying it, mirroring the (cp_index, vertex_id) pairs the
// specified external routine returns.
type CriticalPathStep struct {
	CPIndex  int
	VertexID VertexID
}

// ComputeCriticalPathPotentials computes the longest path through g, where
// edge v -> dep means "v depends on dep" and durations[v] is v's own
// microsecond cost independent of its dependencies. It returns the
// critical path from root to terminal, the total cost of that path, and
// for each critical-path entry the longest-path cost of the graph if that
// entry's own duration were zero (its "replacement duration").
//
// This is the concrete reference implementation of the routine the
// longest-path backend treats as an external collaborator: a topological
// relaxation pass for the longest path, plus one re-run of that pass per
// critical-path vertex with its duration zeroed for the replacement costs.
func ComputeCriticalPathPotentials(g *Graph, durations []uint64) (path []CriticalPathStep, cost uint64, replacementDurations []uint64, err error) {
	if len(durations) != g.VerticesCount() {
		return nil, 0, nil, errs.ContractViolation(
			"durations has %d entries, graph has %d vertices", len(durations), g.VerticesCount())
	}

	order, err := topologicalOrder(g)
	if err != nil {
		return nil, 0, nil, err
	}

	longest, best := longestPaths(g, durations, order)

	terminal := VertexID(-1)
	var terminalCost uint64
	for _, v := range order {
		if terminal == -1 || longest[v] > terminalCost {
			terminal = v
			terminalCost = longest[v]
		}
	}

	if g.VerticesCount() == 0 {
		return nil, 0, nil, nil
	}

	// Walk best-predecessor pointers from terminal back to the root, then
	// reverse to produce a root-to-terminal path.
	var reversed []VertexID
	for v := terminal; ; {
		reversed = append(reversed, v)
		pred, ok := best[v].Get()
		if !ok {
			break
		}
		v = pred
	}
	path = make([]CriticalPathStep, len(reversed))
	for i, v := range reversed {
		path[len(reversed)-1-i].VertexID = v
	}
	for i := range path {
		path[i].CPIndex = i
	}

	replacementDurations = make([]uint64, len(path))
	for i, step := range path {
		replacementDurations[i] = recomputeWithZeroedVertex(g, durations, order, step.VertexID)
	}

	return path, terminalCost, replacementDurations, nil
}

// longestPaths runs the DAG longest-path relaxation over the given
// topological order (dependencies before dependents) and returns, per
// vertex, the longest-path cost ending at that vertex and the predecessor
// (dependency) that achieved it. Ties are broken by first-seen dependency,
// since the scan keeps the first strictly-greater candidate.
func longestPaths(g *Graph, durations []uint64, order []VertexID) ([]uint64, []OptionalVertexID) {
	n := g.VerticesCount()
	longest := make([]uint64, n)
	best := make([]OptionalVertexID, n)

	for _, v := range order {
		var (
			bestDep    OptionalVertexID
			bestDepCst uint64
		)
		for _, dep := range g.OutEdges(v) {
			if depCost := longest[dep]; !bestDep.valid || depCost > bestDepCst {
				bestDep = SomeVertex(dep)
				bestDepCst = depCost
			}
		}
		if bestDep.valid {
			longest[v] = durations[v] + bestDepCst
			best[v] = bestDep
		} else {
			longest[v] = durations[v]
		}
	}
	return longest, best
}

// recomputeWithZeroedVertex reruns the longest-path relaxation with
// zeroed.duration set to zero and returns the new overall cost.
func recomputeWithZeroedVertex(g *Graph, durations []uint64, order []VertexID, zeroed VertexID) uint64 {
	adjusted := make([]uint64, len(durations))
	copy(adjusted, durations)
	adjusted[zeroed] = 0

	longest, _ := longestPaths(g, adjusted, order)

	var cost uint64
	for _, v := range order {
		if longest[v] > cost {
			cost = longest[v]
		}
	}
	return cost
}

// topologicalOrder returns vertices ordered so that every dependency
// appears before the vertex that depends on it (a post-order DFS push
// achieves exactly this: a vertex is pushed only after all vertices
// reachable from it have been pushed). Returns a ComputationFailure if the
// graph contains a cycle.
func topologicalOrder(g *Graph) ([]VertexID, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	n := g.VerticesCount()
	color := make([]uint8, n)
	order := make([]VertexID, 0, n)

	var visit func(v VertexID) error
	visit = func(v VertexID) error {
		color[v] = gray
		for _, dep := range g.OutEdges(v) {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				return errs.ComputationFailure("cycle detected through vertex %d", dep)
			case black:
				// already fully processed
			}
		}
		color[v] = black
		order = append(order, v)
		return nil
	}

	for v := 0; v < n; v++ {
		if color[v] == white {
			if err := visit(VertexID(v)); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}
