package listener_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebuild/critpath/backend"
	"github.com/latticebuild/critpath/listener"
	"github.com/latticebuild/critpath/signal"
)

func runReceiver(t *testing.T, be backend.Backend, emit func(s signal.Sender)) listener.BuildGraphExecutionInfo {
	t.Helper()
	bus := signal.NewBus()
	recv := listener.New(bus.Receiver(), be, nil, nil)

	done := make(chan struct{})
	var info listener.BuildGraphExecutionInfo
	var err error
	go func() {
		defer close(done)
		info, err = recv.Run()
	}()

	sender := bus.Sender()
	emit(sender)
	sender.Signal(signal.BuildFinishedSignal{})

	<-done
	require.NoError(t, err)
	return info
}

func actionKey(id string) signal.ActionKey {
	return signal.ActionKey{ID: id, Owner: signal.Owner{Kind: signal.OwnerTargetLabel, Label: "//pkg:" + id}}
}

func registeredAction(id string, inputs ...signal.ArtifactGroup) *signal.RegisteredAction {
	return &signal.RegisteredAction{
		Key:        actionKey(id),
		Category:   "compile",
		Identifier: id,
		Inputs:     inputs,
	}
}

func TestReceiverEmptyBuildHasNoCriticalPath(t *testing.T) {
	info := runReceiver(t, backend.NewDefault(), func(s signal.Sender) {})
	assert.Empty(t, info.CriticalPath)
	assert.Zero(t, info.NumNodes)
	assert.NotEmpty(t, info.Metadata["go_version"])
}

func TestReceiverLinearChainReportsActionExecutionEntries(t *testing.T) {
	info := runReceiver(t, backend.NewDefault(), func(s signal.Sender) {
		s.Signal(signal.ActionExecutionSignal{
			Action:   registeredAction("a"),
			Duration: signal.NodeDuration{User: 1e9},
		})
		s.Signal(signal.ActionExecutionSignal{
			Action:   registeredAction("b", signal.NewArtifactActionGroup(actionKey("a"))),
			Duration: signal.NodeDuration{User: 2e9},
		})
	})

	require.Len(t, info.CriticalPath, 2)
	assert.Equal(t, listener.ActionExecutionEntryKind, info.CriticalPath[0].Kind)
	assert.Equal(t, "a", info.CriticalPath[0].ActionExecution.Name.Identifier)
	assert.Equal(t, "b", info.CriticalPath[1].ActionExecution.Name.Identifier)
}

func TestReceiverTransitiveSetProjectionVerticesAreFilteredFromReport(t *testing.T) {
	tsetKey := signal.TransitiveSetProjectionKey{ID: "t1"}

	info := runReceiver(t, backend.NewDefault(), func(s signal.Sender) {
		s.Signal(signal.ActionExecutionSignal{
			Action:   registeredAction("a"),
			Duration: signal.NodeDuration{User: 1e9},
		})
		s.Signal(signal.TransitiveSetComputationSignal{
			Key:       tsetKey,
			Artifacts: []signal.ActionKey{actionKey("a")},
		})
	})

	for _, e := range info.CriticalPath {
		assert.NotEqual(t, listener.EntryKind(99), e.Kind) // sanity: only known kinds present
	}
	// The transitive-set vertex itself must never surface on the wire,
	// regardless of which vertex wins the critical path.
	require.Len(t, info.CriticalPath, 1)
	assert.Equal(t, "a", info.CriticalPath[0].ActionExecution.Name.Identifier)
	for _, e := range info.CriticalPath {
		if e.Kind == listener.ActionExecutionEntryKind {
			assert.NotNil(t, e.ActionExecution)
		}
	}
}

func TestReceiverAnalysisEntryReportsTarget(t *testing.T) {
	info := runReceiver(t, backend.NewDefault(), func(s signal.Sender) {
		s.Signal(signal.AnalysisSignal{
			Label:    "//pkg:lib",
			Duration: signal.NodeDuration{User: 1e9},
		})
	})

	require.Len(t, info.CriticalPath, 1)
	assert.Equal(t, listener.AnalysisEntryKind, info.CriticalPath[0].Kind)
	assert.Equal(t, "//pkg:lib", info.CriticalPath[0].Analysis.Target)
}

func TestReceiverActionOwnedByTargetDependsOnAnalysis(t *testing.T) {
	info := runReceiver(t, backend.NewDefault(), func(s signal.Sender) {
		s.Signal(signal.AnalysisSignal{
			Label:    "//pkg:a",
			Duration: signal.NodeDuration{User: 1e9},
		})
		s.Signal(signal.ActionExecutionSignal{
			Action:   registeredAction("a"),
			Duration: signal.NodeDuration{User: 2e9},
		})
	})

	require.Len(t, info.CriticalPath, 2)
	assert.Equal(t, listener.AnalysisEntryKind, info.CriticalPath[0].Kind)
	assert.Equal(t, listener.ActionExecutionEntryKind, info.CriticalPath[1].Kind)
}

func TestReceiverLongestPathBackendReportsPotentialImprovement(t *testing.T) {
	info := runReceiver(t, backend.NewLongestPath(), func(s signal.Sender) {
		s.Signal(signal.AnalysisSignal{Label: "T", Duration: signal.NodeDuration{User: 2e9}})
		s.Signal(signal.TopLevelTargetSignal{
			Label:     "T",
			Artifacts: []signal.ArtifactGroup{signal.NewArtifactActionGroup(actionKey("x"))},
		})
		s.Signal(signal.ActionExecutionSignal{
			Action:   registeredAction("x"),
			Duration: signal.NodeDuration{User: 3e9},
		})
	})

	require.Len(t, info.CriticalPath, 2)
	for _, e := range info.CriticalPath {
		require.NotNil(t, e.PotentialImprovement)
	}
}

func TestReceiverBuildFinishedWithNoSignalsStillProducesReport(t *testing.T) {
	info := runReceiver(t, backend.NewLongestPath(), func(s signal.Sender) {})
	assert.Empty(t, info.CriticalPath)
	assert.Zero(t, info.NumNodes)
	assert.Zero(t, info.NumEdges)
}
