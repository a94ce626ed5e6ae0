package listener

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/latticebuild/critpath/backend"
	"github.com/latticebuild/critpath/internal/critlog"
	"github.com/latticebuild/critpath/internal/errs"
	"github.com/latticebuild/critpath/internal/metadata"
	"github.com/latticebuild/critpath/internal/metrics"
	"github.com/latticebuild/critpath/signal"
)

// Receiver pulls signals from a bus until BuildFinished or channel closure,
// dispatching each to a Backend, then assembles and returns the wire
// report.
type Receiver struct {
	bus     *signal.Receiver
	backend backend.Backend
	logger  *critlog.Logger
	metrics *metrics.Registry
}

// New constructs a Receiver. logger and metricsRegistry may be nil, in
// which case logging and metrics are no-ops.
func New(bus *signal.Receiver, be backend.Backend, logger *critlog.Logger, metricsRegistry *metrics.Registry) *Receiver {
	if logger == nil {
		logger = critlog.New(nil, nil)
	}
	return &Receiver{bus: bus, backend: be, logger: logger, metrics: metricsRegistry}
}

// Run drains the bus, dispatching every signal to the backend, until it
// observes BuildFinished or the bus closes with no further signals. It
// then calls the backend's Finish and returns the assembled wire report.
// A panic raised while dispatching a signal to the backend is recovered
// and converted to an error, matching the executing-task convention of
// never letting a single unit of work crash the whole process.
func (r *Receiver) Run() (report BuildGraphExecutionInfo, err error) {
	r.logger.Info("receiver loop started")

loop:
	for {
		sig, ok := r.bus.Next()
		if !ok {
			break
		}

		r.metrics.CountSignal(kindName(sig.Type()))

		if dispatchErr := r.dispatchSafely(sig); dispatchErr != nil {
			return BuildGraphExecutionInfo{}, dispatchErr
		}

		if sig.Type() == signal.BuildFinishedType {
			r.logger.Info("BuildFinished observed, finalizing backend")
			break loop
		}
	}

	start := time.Now()
	info, finishErr := r.backend.Finish()
	r.metrics.ObserveFinalize(time.Since(start))
	if finishErr != nil {
		r.logger.Error("backend finish failed", finishErr)
		return BuildGraphExecutionInfo{}, finishErr
	}

	return toWireReport(info), nil
}

// dispatchSafely recovers a panic from a single signal's backend dispatch
// and converts it into a ContractViolation, so a malformed signal from one
// producer cannot take down the receiver task.
func (r *Receiver) dispatchSafely(sig signal.Signal) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while dispatching signal", fmt.Errorf("%v", rec))
			err = errs.ContractViolation("panic dispatching %T: %v\n%s", sig, rec, debug.Stack())
		}
	}()
	r.dispatch(sig)
	return nil
}

func (r *Receiver) dispatch(sig signal.Signal) {
	switch s := sig.(type) {
	case signal.ActionExecutionSignal:
		r.processActionExecution(s)
	case signal.TransitiveSetComputationSignal:
		r.processTransitiveSetComputation(s)
	case signal.ActionRedirectionSignal:
		r.processActionRedirection(s)
	case signal.AnalysisSignal:
		r.processAnalysis(s)
	case signal.TopLevelTargetSignal:
		r.processTopLevelTarget(s)
	case signal.BuildFinishedSignal:
		// No backend work; this is the terminal token.
	}
}

func (r *Receiver) processActionExecution(s signal.ActionExecutionSignal) {
	if s.Action == nil {
		r.logger.Error("ActionExecution signal with no action", fmt.Errorf("dropped"))
		return
	}

	deps := artifactDeps(s.Action.Inputs)
	if label, ok := s.Action.Key.TargetLabel(); ok {
		deps = append(deps, signal.NewAnalysisNodeKey(label))
	}

	r.backend.ProcessNode(
		signal.NewActionNodeKey(s.Action.Key),
		s.Action,
		s.Duration,
		backend.FromSlice(deps),
		s.SpanID,
	)
}

func (r *Receiver) processActionRedirection(s signal.ActionRedirectionSignal) {
	r.backend.ProcessNode(
		signal.NewActionNodeKey(s.Key),
		nil,
		signal.ZeroNodeDuration(),
		backend.FromSlice([]signal.NodeKey{signal.NewActionNodeKey(s.Dest)}),
		nil,
	)
}

func (r *Receiver) processTransitiveSetComputation(s signal.TransitiveSetComputationSignal) {
	deps := make([]signal.NodeKey, 0, len(s.Artifacts)+len(s.SetDeps))
	for _, a := range s.Artifacts {
		deps = append(deps, signal.NewActionNodeKey(a))
	}
	for _, sd := range s.SetDeps {
		deps = append(deps, signal.NewTransitiveSetNodeKey(sd))
	}

	r.backend.ProcessNode(
		signal.NewTransitiveSetNodeKey(s.Key),
		nil,
		signal.ZeroNodeDuration(),
		backend.FromSlice(deps),
		nil,
	)
}

func (r *Receiver) processAnalysis(s signal.AnalysisSignal) {
	deps := make([]signal.NodeKey, 0, len(s.DirectDeps))
	for _, d := range s.DirectDeps {
		deps = append(deps, signal.NewAnalysisNodeKey(d))
	}

	r.backend.ProcessNode(
		signal.NewAnalysisNodeKey(s.Label),
		nil,
		s.Duration,
		backend.FromSlice(deps),
		s.SpanID,
	)
}

func (r *Receiver) processTopLevelTarget(s signal.TopLevelTargetSignal) {
	r.backend.ProcessTopLevelTarget(
		signal.NewAnalysisNodeKey(s.Label),
		backend.FromSlice(artifactDeps(s.Artifacts)),
	)
}

// artifactDeps converts artifact groups into the NodeKeys they depend on. A
// source artifact with no producing action contributes no dependency.
func artifactDeps(groups []signal.ArtifactGroup) []signal.NodeKey {
	var keys []signal.NodeKey
	for _, g := range groups {
		switch g.Kind {
		case signal.ArtifactKind:
			if g.ActionKey != nil {
				keys = append(keys, signal.NewActionNodeKey(*g.ActionKey))
			}
		case signal.ArtifactGroupProjectionKind:
			keys = append(keys, signal.NewTransitiveSetNodeKey(g.ProjectionKey))
		}
	}
	return keys
}

func kindName(t signal.Type) string {
	switch t {
	case signal.ActionExecutionType:
		return "action_execution"
	case signal.TransitiveSetComputationType:
		return "transitive_set_computation"
	case signal.ActionRedirectionType:
		return "action_redirection"
	case signal.AnalysisType:
		return "analysis"
	case signal.TopLevelTargetType:
		return "top_level_target"
	case signal.BuildFinishedType:
		return "build_finished"
	default:
		return "unknown"
	}
}

// toWireReport converts a backend's BuildInfo into the public report
// shape. TransitiveSetProjection vertices are omitted: they carry edges
// for graph-accounting purposes but are internal bookkeeping, never
// reported. An ActionKey vertex with no stored RegisteredAction (which
// should not happen for a well-behaved backend, but isn't guaranteed by
// the Backend contract) is also omitted.
func toWireReport(info backend.BuildInfo) BuildGraphExecutionInfo {
	entries := make([]CriticalPathEntry, 0, len(info.CriticalPath))

	for _, e := range info.CriticalPath {
		switch e.Key.Kind {
		case signal.TransitiveSetProjectionKeyKind:
			continue
		case signal.ActionKeyKind:
			if e.Data.Action == nil {
				continue
			}
			entries = append(entries, CriticalPathEntry{
				SpanID:               e.Data.SpanID,
				Duration:             e.Data.Duration.CriticalPathDuration(),
				UserDuration:         e.Data.Duration.User,
				TotalDuration:        e.Data.Duration.Total,
				PotentialImprovement: e.PotentialImprovement,
				Kind:                 ActionExecutionEntryKind,
				ActionExecution: &ActionExecutionEntry{
					Owner: OwnerRef{Kind: e.Data.Action.Key.Owner.Kind, Label: e.Data.Action.Key.Owner.Label},
					Name:  ActionName{Category: e.Data.Action.Category, Identifier: e.Data.Action.Identifier},
				},
			})
		case signal.AnalysisKeyKind:
			entries = append(entries, CriticalPathEntry{
				SpanID:               e.Data.SpanID,
				Duration:             e.Data.Duration.CriticalPathDuration(),
				UserDuration:         e.Data.Duration.User,
				TotalDuration:        e.Data.Duration.Total,
				PotentialImprovement: e.PotentialImprovement,
				Kind:                 AnalysisEntryKind,
				Analysis:             &AnalysisEntry{Target: e.Key.Analysis.Label},
			})
		}
	}

	return BuildGraphExecutionInfo{
		CriticalPath:      entries,
		NumNodes:          info.NumNodes,
		NumEdges:          info.NumEdges,
		Metadata:          metadata.Collect(),
		UsesTotalDuration: false,
	}
}
