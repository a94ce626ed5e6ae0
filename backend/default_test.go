package backend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticebuild/critpath/backend"
	"github.com/latticebuild/critpath/signal"
)

func action(id string) signal.NodeKey {
	return signal.NewActionNodeKey(signal.ActionKey{ID: id})
}

func TestDefaultBackendEmpty(t *testing.T) {
	d := backend.NewDefault()
	info, err := d.Finish()
	require.NoError(t, err)
	assert.Empty(t, info.CriticalPath)
	assert.Zero(t, info.NumNodes)
	assert.Zero(t, info.NumEdges)
}

func TestDefaultBackendUnitNode(t *testing.T) {
	d := backend.NewDefault()
	d.ProcessNode(action("A"), nil, signal.NodeDuration{User: 3 * time.Second, Total: 3 * time.Second}, nil, nil)

	info, err := d.Finish()
	require.NoError(t, err)
	require.Len(t, info.CriticalPath, 1)
	assert.Equal(t, action("A"), info.CriticalPath[0].Key)
	assert.Equal(t, 3*time.Second, info.CriticalPath[0].Data.Duration.User)
	assert.Nil(t, info.CriticalPath[0].PotentialImprovement)
	assert.EqualValues(t, 1, info.NumNodes)
	assert.Zero(t, info.NumEdges)
}

func TestDefaultBackendLinearChain(t *testing.T) {
	d := backend.NewDefault()
	d.ProcessNode(action("A"), nil, signal.NodeDuration{User: 5 * time.Second}, nil, nil)
	d.ProcessNode(action("B"), nil, signal.NodeDuration{User: 6 * time.Second}, backend.FromSlice([]signal.NodeKey{action("A")}), nil)
	d.ProcessNode(action("C"), nil, signal.NodeDuration{User: 7 * time.Second}, backend.FromSlice([]signal.NodeKey{action("B")}), nil)

	info, err := d.Finish()
	require.NoError(t, err)
	require.Len(t, info.CriticalPath, 3)
	assert.Equal(t, []signal.NodeKey{action("A"), action("B"), action("C")}, keysOf(info.CriticalPath))
	assert.EqualValues(t, 3, info.NumNodes)
	assert.EqualValues(t, 2, info.NumEdges)
}

func TestDefaultBackendBranchWithLoser(t *testing.T) {
	d := backend.NewDefault()
	d.ProcessNode(action("A"), nil, signal.NodeDuration{User: 5 * time.Second}, nil, nil)
	d.ProcessNode(action("B"), nil, signal.NodeDuration{User: 6 * time.Second}, backend.FromSlice([]signal.NodeKey{action("A")}), nil)
	d.ProcessNode(action("D"), nil, signal.NodeDuration{User: 9 * time.Second}, backend.FromSlice([]signal.NodeKey{action("A")}), nil)

	info, err := d.Finish()
	require.NoError(t, err)
	assert.Equal(t, []signal.NodeKey{action("A"), action("D")}, keysOf(info.CriticalPath))
}

func TestDefaultBackendRedirectionPreservesChain(t *testing.T) {
	d := backend.NewDefault()
	k1 := signal.ActionKey{ID: "K1"}
	k2 := signal.ActionKey{ID: "K2"}
	a := signal.ActionKey{ID: "A"}

	d.ProcessNode(action("A"), nil, signal.NodeDuration{User: 2 * time.Second}, nil, nil)
	d.ProcessNode(signal.NewActionNodeKey(k1), nil, signal.ZeroNodeDuration(),
		backend.FromSlice([]signal.NodeKey{signal.NewActionNodeKey(k2)}), nil)
	d.ProcessNode(signal.NewActionNodeKey(k2), nil, signal.NodeDuration{User: 4 * time.Second},
		backend.FromSlice([]signal.NodeKey{signal.NewActionNodeKey(a)}), nil)

	info, err := d.Finish()
	require.NoError(t, err)

	var total time.Duration
	for _, e := range info.CriticalPath {
		total += e.Data.Duration.User
	}
	assert.Equal(t, 6*time.Second, total)
}

func TestDefaultBackendForwardReferenceIgnoredButCounted(t *testing.T) {
	d := backend.NewDefault()
	d.ProcessNode(action("A"), nil, signal.NodeDuration{User: time.Second},
		backend.FromSlice([]signal.NodeKey{action("never-seen")}), nil)

	info, err := d.Finish()
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.NumEdges)
	require.Len(t, info.CriticalPath, 1)
	assert.Equal(t, time.Second, info.CriticalPath[0].Data.Duration.User)
}

func TestDefaultBackendDedupesDeps(t *testing.T) {
	d := backend.NewDefault()
	d.ProcessNode(action("A"), nil, signal.NodeDuration{User: time.Second}, nil, nil)
	d.ProcessNode(action("B"), nil, signal.NodeDuration{User: time.Second},
		backend.FromSlice([]signal.NodeKey{action("A"), action("A"), action("A")}), nil)

	info, err := d.Finish()
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.NumEdges)
}

func keysOf(entries []backend.CriticalPathEntry) []signal.NodeKey {
	out := make([]signal.NodeKey, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
