// Package graph builds a dense-id directed graph from build-signal vertices
// and computes the longest-path-with-potentials analysis the longest-path
// backend needs. The graph builder follows the same builder/frozen-graph
// split the pack's graph library teaches (accumulate, then freeze into an
// immutable structure), adapted to identity-keyed vertices via a dense-id
// lookup table rather than generic integer or string labels.
package graph

import (
	"github.com/latticebuild/critpath/internal/errs"
	"github.com/latticebuild/critpath/signal"
)

// VertexID is a dense, zero-based vertex index assigned in first-seen
// order.
type VertexID int

// OptionalVertexID is a VertexID that may be absent, used for the
// first-analysis slot and for synthetic edge targets.
type OptionalVertexID struct {
	id    VertexID
	valid bool
}

// NoVertex returns an absent OptionalVertexID.
func NoVertex() OptionalVertexID { return OptionalVertexID{} }

// SomeVertex wraps id as a present OptionalVertexID.
func SomeVertex(id VertexID) OptionalVertexID { return OptionalVertexID{id: id, valid: true} }

// Get returns the wrapped id and whether it is present.
func (o OptionalVertexID) Get() (VertexID, bool) { return o.id, o.valid }

// DepSeq is a lazy, possibly-infinite-looking sequence of dependency keys,
// in the shape of a Go range-over-func iterator. Implementations must
// support at most one pass.
type DepSeq func(yield func(signal.NodeKey) bool)

// Graph is the frozen, dense-id adjacency list built by Builder.Finish.
type Graph struct {
	edges [][]VertexID
}

// VerticesCount returns the number of vertices in the graph.
func (g *Graph) VerticesCount() int { return len(g.edges) }

// EdgesCount returns the number of resolved out-edges in the graph (edges
// to vertices that exist; forward references to never-seen keys are not
// represented here, though they were still counted toward Builder's edge
// total).
func (g *Graph) EdgesCount() int {
	total := 0
	for _, e := range g.edges {
		total += len(e)
	}
	return total
}

// OutEdges returns the out-edges of vertex v.
func (g *Graph) OutEdges(v VertexID) []VertexID { return g.edges[v] }

// AddEdges returns a new graph with one additional synthetic edge appended
// to each vertex v for which extra[v] is present. Used by the longest-path
// backend to inject first-analysis visibility edges.
func (g *Graph) AddEdges(extra []OptionalVertexID) (*Graph, error) {
	if len(extra) != len(g.edges) {
		return nil, errs.ContractViolation("AddEdges: extra has %d entries, graph has %d vertices", len(extra), len(g.edges))
	}
	newEdges := make([][]VertexID, len(g.edges))
	for v, e := range g.edges {
		if id, ok := extra[v].Get(); ok {
			newEdges[v] = append(append([]VertexID(nil), e...), id)
		} else {
			newEdges[v] = e
		}
	}
	return &Graph{edges: newEdges}, nil
}

// Builder accumulates vertices and their out-edges before freezing into a
// Graph. Vertex ids are assigned densely in first-seen order.
type Builder struct {
	index       map[signal.NodeKey]VertexID
	keys        []signal.NodeKey
	data        []signal.NodeData
	outEdgeKeys [][]signal.NodeKey
	numEdges    uint64
	err         error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[signal.NodeKey]VertexID)}
}

// Push appends one vertex with its out-edge list. deps is consumed exactly
// once; duplicate dependency keys are counted as a single edge. If key was
// already pushed, or any prior call failed, Push records a
// ContractViolation and becomes a no-op; the error is surfaced from
// Finish.
func (b *Builder) Push(key signal.NodeKey, deps DepSeq, data signal.NodeData) {
	if b.err != nil {
		return
	}
	if _, dup := b.index[key]; dup {
		b.err = errs.ContractViolation("duplicate vertex for key %s", key)
		return
	}

	id := VertexID(len(b.keys))
	b.index[key] = id
	b.keys = append(b.keys, key)
	b.data = append(b.data, data)

	var edgeKeys []signal.NodeKey
	if deps != nil {
		seen := make(map[signal.NodeKey]struct{})
		deps(func(dep signal.NodeKey) bool {
			if _, dup := seen[dep]; dup {
				return true
			}
			seen[dep] = struct{}{}
			b.numEdges++
			edgeKeys = append(edgeKeys, dep)
			return true
		})
	}
	b.outEdgeKeys = append(b.outEdgeKeys, edgeKeys)
}

// Err returns the first ContractViolation recorded by Push, if any.
func (b *Builder) Err() error { return b.err }

// Finish freezes the builder into a Graph, a key table (vertex id -> key),
// and a parallel data table (vertex id -> NodeData). A dependency key that
// was never pushed as a vertex resolves to no edge in the frozen graph
// (weight zero) but was still counted toward NumEdges.
func (b *Builder) Finish() (*Graph, []signal.NodeKey, []signal.NodeData, error) {
	if b.err != nil {
		return nil, nil, nil, b.err
	}

	edges := make([][]VertexID, len(b.keys))
	for i, depKeys := range b.outEdgeKeys {
		for _, dk := range depKeys {
			if id, ok := b.index[dk]; ok {
				edges[i] = append(edges[i], id)
			}
		}
	}

	return &Graph{edges: edges}, b.keys, b.data, nil
}

// NumEdges returns the number of unique (vertex, dep) pairs pushed so far,
// whether or not the dep resolved to a vertex in the final graph.
func (b *Builder) NumEdges() uint64 { return b.numEdges }

// IndexKeys rebuilds a key-to-vertex-id lookup table from a key table
// returned by Finish, for callers (such as the longest-path backend) that
// need to resolve NodeKeys to VertexIDs after the builder has been
// consumed.
func IndexKeys(keys []signal.NodeKey) map[signal.NodeKey]VertexID {
	idx := make(map[signal.NodeKey]VertexID, len(keys))
	for i, k := range keys {
		idx[k] = VertexID(i)
	}
	return idx
}
