package signal

// Type discriminates the six Signal variants. A small interface with a
// single discriminator method, matched over in exactly one place (the
// receiver loop).
type Type int

const (
	ActionExecutionType Type = iota
	TransitiveSetComputationType
	ActionRedirectionType
	AnalysisType
	TopLevelTargetType
	BuildFinishedType
)

// Signal is one of the six variants producers emit on the bus.
type Signal interface {
	Type() Type
}

// ActionExecutionSignal reports that a registered action finished.
type ActionExecutionSignal struct {
	Action   *RegisteredAction
	Duration NodeDuration
	SpanID   *SpanID
}

func (ActionExecutionSignal) Type() Type { return ActionExecutionType }

// TransitiveSetComputationSignal reports that a transitive-set projection
// finished.
type TransitiveSetComputationSignal struct {
	Key       TransitiveSetProjectionKey
	Artifacts []ActionKey
	SetDeps   []TransitiveSetProjectionKey
}

func (TransitiveSetComputationSignal) Type() Type { return TransitiveSetComputationType }

// ActionRedirectionSignal reports that a dynamic-output action key resolves
// to another action key. Modeled as a zero-duration node with a single
// dependency so the predecessor chain isn't broken.
type ActionRedirectionSignal struct {
	Key  ActionKey
	Dest ActionKey
}

func (ActionRedirectionSignal) Type() Type { return ActionRedirectionType }

// AnalysisSignal reports that analysis of a target finished. DirectDeps
// carries the labels of the targets this analysis directly depends on,
// already resolved by the caller; the listener never needs the full
// configured-target graph, only this flat dependency list.
type AnalysisSignal struct {
	Label      string
	DirectDeps []string
	Duration   NodeDuration
	SpanID     *SpanID
}

func (AnalysisSignal) Type() Type { return AnalysisType }

// TopLevelTargetSignal declares that a top-level analysis "reveals" a set
// of artifacts, for visibility-edge synthesis in the longest-path backend.
type TopLevelTargetSignal struct {
	Label     string
	Artifacts []ArtifactGroup
}

func (TopLevelTargetSignal) Type() Type { return TopLevelTargetType }

// BuildFinishedSignal is the terminal token. The receiver stops reading
// after consuming it.
type BuildFinishedSignal struct{}

func (BuildFinishedSignal) Type() Type { return BuildFinishedType }
