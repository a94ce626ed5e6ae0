// Package backend defines the abstract contract the receiver loop uses to
// accumulate the build's dependency graph and, at build completion,
// produce the critical path. Two implementations are provided: Default
// (online, per-node predecessor tracking) and LongestPath (offline,
// graph-based, with potential-improvement figures).
package backend

import (
	"time"

	"github.com/latticebuild/critpath/signal"
)

// DepSeq is a lazy sequence of dependency keys for one vertex. Backends
// must consume it at most once and deduplicate before counting edges.
type DepSeq func(yield func(signal.NodeKey) bool)

// FromSlice adapts a plain slice of keys into a DepSeq, for callers that
// already have a materialized dependency list.
func FromSlice(keys []signal.NodeKey) DepSeq {
	return func(yield func(signal.NodeKey) bool) {
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}
}

// Backend is the abstract contract for graph accumulation and
// finalization. Implementations own all state exclusively; the receiver
// loop that drives a Backend is the only caller.
type Backend interface {
	// ProcessNode records a vertex with its out-edges. action is non-nil
	// only for action-execution vertices. spanID may be nil.
	ProcessNode(key signal.NodeKey, action *signal.RegisteredAction, duration signal.NodeDuration, deps DepSeq, spanID *signal.SpanID)

	// ProcessTopLevelTarget declares a visibility relationship: analysis
	// "reveals" artifacts. Only the longest-path backend uses this.
	ProcessTopLevelTarget(analysis signal.NodeKey, artifacts DepSeq)

	// Finish consumes the backend and returns the critical path, node
	// count, and edge count. It must not be called more than once.
	Finish() (BuildInfo, error)
}

// CriticalPathEntry is one vertex on the critical path, from root to
// terminal order.
type CriticalPathEntry struct {
	Key                  signal.NodeKey
	Data                 signal.NodeData
	PotentialImprovement *time.Duration
}

// BuildInfo is the result of a backend's Finish call.
type BuildInfo struct {
	CriticalPath []CriticalPathEntry
	NumNodes     uint64
	NumEdges     uint64
}
