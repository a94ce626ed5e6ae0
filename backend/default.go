package backend

import (
	"time"

	"github.com/latticebuild/critpath/signal"
)

// criticalPathNode is the online predecessor-tracking record the Default
// backend maintains per vertex: the cumulative critical-path duration
// ending at this node, its stored payload, and the predecessor chosen for
// that cumulative path.
type criticalPathNode struct {
	duration time.Duration
	value    signal.NodeData
	prev     *signal.NodeKey
}

// Default is the online backend: it tracks, for every vertex as it
// arrives, the highest-cumulative-duration predecessor seen so far. It
// never builds an explicit graph and never computes potential-improvement
// figures.
type Default struct {
	predecessors map[signal.NodeKey]criticalPathNode
	numNodes     uint64
	numEdges     uint64
}

// NewDefault returns an empty Default backend.
func NewDefault() *Default {
	return &Default{predecessors: make(map[signal.NodeKey]criticalPathNode)}
}

// ProcessNode implements Backend.
func (d *Default) ProcessNode(key signal.NodeKey, action *signal.RegisteredAction, duration signal.NodeDuration, deps DepSeq, spanID *signal.SpanID) {
	var (
		hasPrev    bool
		prevKey    signal.NodeKey
		prevAncDur time.Duration
	)

	if deps != nil {
		seen := make(map[signal.NodeKey]struct{})
		deps(func(dep signal.NodeKey) bool {
			if _, dup := seen[dep]; dup {
				return true
			}
			seen[dep] = struct{}{}
			d.numEdges++

			node, ok := d.predecessors[dep]
			if !ok {
				return true
			}
			if !hasPrev || node.duration > prevAncDur {
				hasPrev = true
				prevKey = dep
				prevAncDur = node.duration
			}
			return true
		})
	}

	value := signal.NodeData{Action: action, Duration: duration, SpanID: spanID}

	var node criticalPathNode
	if hasPrev {
		pk := prevKey
		node = criticalPathNode{
			duration: prevAncDur + duration.CriticalPathDuration(),
			value:    value,
			prev:     &pk,
		}
	} else {
		node = criticalPathNode{
			duration: duration.CriticalPathDuration(),
			value:    value,
		}
	}

	d.numNodes++
	d.predecessors[key] = node
}

// ProcessTopLevelTarget implements Backend. The default backend does not
// model visibility edges.
func (d *Default) ProcessTopLevelTarget(analysis signal.NodeKey, artifacts DepSeq) {}

// Finish implements Backend.
func (d *Default) Finish() (BuildInfo, error) {
	path := extractCriticalPath(d.predecessors)
	entries := make([]CriticalPathEntry, len(path))
	for i, p := range path {
		entries[i] = CriticalPathEntry{Key: p.key, Data: p.value}
	}
	return BuildInfo{
		CriticalPath: entries,
		NumNodes:     d.numNodes,
		NumEdges:     d.numEdges,
	}, nil
}

type pathEntry struct {
	key      signal.NodeKey
	value    signal.NodeData
	duration time.Duration
}

// extractCriticalPath finds the vertex with the maximum cumulative
// duration (among equal maxima the pick follows map iteration order, so
// it is not deterministic), walks its prev pointers
// back to the root, reverses the walk, and converts cumulative durations
// into per-node durations via saturating subtraction.
func extractCriticalPath(predecessors map[signal.NodeKey]criticalPathNode) []pathEntry {
	var terminal *signal.NodeKey
	var terminalDur time.Duration
	for k, v := range predecessors {
		if terminal == nil || v.duration > terminalDur {
			kk := k
			terminal = &kk
			terminalDur = v.duration
		}
	}
	if terminal == nil {
		return nil
	}

	var walk []pathEntry
	for cur := terminal; cur != nil; {
		node := predecessors[*cur]
		walk = append(walk, pathEntry{key: *cur, value: node.value, duration: node.duration})
		cur = node.prev
	}

	// walk is terminal-to-root; reverse to root-to-terminal.
	for i, j := 0, len(walk)-1; i < j; i, j = i+1, j-1 {
		walk[i], walk[j] = walk[j], walk[i]
	}

	for i := len(walk) - 1; i >= 1; i-- {
		walk[i].duration = signal.SaturatingSub(walk[i].duration, walk[i-1].duration)
	}

	return walk
}
