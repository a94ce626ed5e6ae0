// Package listener dispatches signals from the bus to a backend and, once
// the build finishes, assembles and publishes the wire report.
package listener

import (
	"time"

	"github.com/latticebuild/critpath/signal"
)

// OwnerKind mirrors signal.OwnerKind on the wire.
type OwnerKind = signal.OwnerKind

// OwnerRef identifies what owns a reported action.
type OwnerRef struct {
	Kind  OwnerKind
	Label string
}

// ActionName is the category/identifier pair a registered action reports.
type ActionName struct {
	Category   string
	Identifier string
}

// ActionExecutionEntry is the wire shape for a critical-path entry whose
// key is an ActionKey.
type ActionExecutionEntry struct {
	Owner OwnerRef
	Name  ActionName
}

// AnalysisEntry is the wire shape for a critical-path entry whose key is an
// AnalysisKey.
type AnalysisEntry struct {
	Target string
}

// EntryKind discriminates the two reportable critical-path entry shapes.
// TransitiveSetProjection vertices never reach this type: they are
// filtered out before the wire report is assembled.
type EntryKind int

const (
	ActionExecutionEntryKind EntryKind = iota
	AnalysisEntryKind
)

// CriticalPathEntry is one reported vertex on the critical path.
type CriticalPathEntry struct {
	SpanID               *signal.SpanID
	Duration             time.Duration
	UserDuration         time.Duration
	TotalDuration        time.Duration
	PotentialImprovement *time.Duration

	Kind            EntryKind
	ActionExecution *ActionExecutionEntry
	Analysis        *AnalysisEntry
}

// BuildGraphExecutionInfo is the report emitted once per build to the
// external event bus.
type BuildGraphExecutionInfo struct {
	CriticalPath      []CriticalPathEntry
	NumNodes          uint64
	NumEdges          uint64
	Metadata          map[string]string
	UsesTotalDuration bool
}

// EventSink is the external event bus collaborator. Production code wires
// in the host's real telemetry bus; tests use a recording stub.
type EventSink interface {
	Publish(BuildGraphExecutionInfo)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(BuildGraphExecutionInfo)

// Publish implements EventSink.
func (f EventSinkFunc) Publish(info BuildGraphExecutionInfo) { f(info) }

// NoopEventSink discards the report. Useful as a default when the host
// process doesn't care about the report (e.g. in tests of Scope itself).
var NoopEventSink EventSink = EventSinkFunc(func(BuildGraphExecutionInfo) {})
