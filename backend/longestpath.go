package backend

import (
	"time"

	"go.uber.org/zap"

	"github.com/latticebuild/critpath/graph"
	"github.com/latticebuild/critpath/internal/critlog"
	"github.com/latticebuild/critpath/internal/errs"
	"github.com/latticebuild/critpath/signal"
)

// visibilityEdge records that a top-level analysis "reveals" a set of
// artifacts, used to synthesize first-analysis gating edges at Finish.
type visibilityEdge struct {
	analysis signal.NodeKey
	reveals  []signal.NodeKey
}

// LongestPath is the offline backend: it accumulates a dense-id graph as
// signals arrive, and at Finish builds the first-analysis gating edges,
// runs the longest-path-with-potentials routine, and reports a potential
// improvement for every critical-path vertex.
type LongestPath struct {
	builder    *graph.Builder
	visibility []visibilityEdge
	buildErr   error
	logger     *critlog.Logger
}

// NewLongestPath returns an empty LongestPath backend.
func NewLongestPath() *LongestPath {
	return &LongestPath{builder: graph.NewBuilder()}
}

// WithLogger attaches logger to l, used by Finish to emit structured
// diagnostics (vertex/edge counts, computation duration) about the
// longest-path-with-potentials pass. Returns l for chaining at construction
// time. A LongestPath with no logger attached (the zero value's nil)
// performs no logging.
func (l *LongestPath) WithLogger(logger *critlog.Logger) *LongestPath {
	l.logger = logger
	return l
}

// ProcessNode implements Backend.
func (l *LongestPath) ProcessNode(key signal.NodeKey, action *signal.RegisteredAction, duration signal.NodeDuration, deps DepSeq, spanID *signal.SpanID) {
	if l.buildErr != nil {
		return
	}
	l.builder.Push(key, graph.DepSeq(deps), signal.NodeData{Action: action, Duration: duration, SpanID: spanID})
	if err := l.builder.Err(); err != nil {
		l.buildErr = err
	}
}

// ProcessTopLevelTarget implements Backend.
func (l *LongestPath) ProcessTopLevelTarget(analysis signal.NodeKey, artifacts DepSeq) {
	var revealed []signal.NodeKey
	if artifacts != nil {
		artifacts(func(k signal.NodeKey) bool {
			revealed = append(revealed, k)
			return true
		})
	}
	l.visibility = append(l.visibility, visibilityEdge{analysis: analysis, reveals: revealed})
}

// Finish implements Backend. It materializes the graph, synthesizes
// first-analysis visibility edges, converts durations to microseconds,
// runs ComputeCriticalPathPotentials, and assembles the report.
func (l *LongestPath) Finish() (BuildInfo, error) {
	start := time.Now()
	if l.buildErr != nil {
		return BuildInfo{}, l.buildErr
	}

	g, keys, data, err := l.builder.Finish()
	if err != nil {
		return BuildInfo{}, err
	}

	index := graph.IndexKeys(keys)

	firstAnalysis := make([]graph.OptionalVertexID, g.VerticesCount())
	for _, v := range l.visibility {
		analysisID, ok := index[v.analysis]
		if !ok {
			continue // nothing depends on this
		}
		assignFirstAnalysis(g, keys, firstAnalysis, index, analysisID, v.reveals)
	}

	augmented, err := g.AddEdges(firstAnalysis)
	if err != nil {
		return BuildInfo{}, err
	}

	durations := make([]uint64, len(data))
	for i, d := range data {
		micros := d.Duration.CriticalPathDuration().Microseconds()
		if micros < 0 {
			return BuildInfo{}, errs.Overflow("duration for vertex %d is negative after conversion", i)
		}
		durations[i] = uint64(micros)
	}

	path, cost, replacement, err := graph.ComputeCriticalPathPotentials(augmented, durations)
	if err != nil {
		return BuildInfo{}, err
	}

	entries := make([]CriticalPathEntry, len(path))
	for i, step := range path {
		var improvementMicros uint64
		if cost > replacement[i] {
			improvementMicros = cost - replacement[i]
		}
		potential := time.Duration(improvementMicros) * time.Microsecond
		entries[i] = CriticalPathEntry{
			Key:                  keys[step.VertexID],
			Data:                 data[step.VertexID],
			PotentialImprovement: &potential,
		}
	}

	if l.logger != nil {
		l.logger.Structured().Info("longest-path backend finalized",
			zap.Int("num_nodes", augmented.VerticesCount()),
			zap.Int("num_edges", augmented.EdgesCount()),
			zap.Int("critical_path_len", len(path)),
			zap.Duration("cost", time.Duration(cost)*time.Microsecond),
			zap.Duration("finalize_elapsed", time.Since(start)),
		)
	}

	return BuildInfo{
		CriticalPath: entries,
		NumNodes:     uint64(augmented.VerticesCount()),
		NumEdges:     uint64(augmented.EdgesCount()),
	}, nil
}

// assignFirstAnalysis starts from each revealed artifact that exists in
// the graph and walks existing out-edges, assigning the
// analysis as the "gating" vertex for every non-Analysis vertex whose
// slot is still empty, and stopping descent at already-assigned vertices
// and at Analysis vertices.
func assignFirstAnalysis(g *graph.Graph, keys []signal.NodeKey, firstAnalysis []graph.OptionalVertexID, index map[signal.NodeKey]graph.VertexID, analysis graph.VertexID, reveals []signal.NodeKey) {
	var queue []graph.VertexID
	for _, artifact := range reveals {
		if id, ok := index[artifact]; ok {
			queue = append(queue, id)
		}
		// Not built: unexpected, but signals aren't reported in every
		// failure case, so this can legitimately happen.
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if _, assigned := firstAnalysis[i].Get(); assigned {
			continue
		}
		if keys[i].Kind == signal.AnalysisKeyKind {
			continue
		}

		firstAnalysis[i] = graph.SomeVertex(analysis)
		queue = append(queue, g.OutEdges(i)...)
	}
}
