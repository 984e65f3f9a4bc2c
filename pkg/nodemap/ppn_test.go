package nodemap

import (
	"testing"

	"github.com/cuemby/nodemapd/pkg/types"
	"github.com/stretchr/testify/require"
)

func buildAppJob() (*types.Job, []*types.Node) {
	n0 := &types.Node{Index: 0, Name: "n0", Daemon: &types.Process{Vpid: 0}}
	n1 := &types.Node{Index: 1, Name: "n1", Daemon: &types.Process{Vpid: 1}}
	n2 := &types.Node{Index: 2, Name: "n2"} // no daemon, never gets procs

	job := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 1}
	job.Map.Nodes = []*types.Node{n0, n1, n2}
	job.Map.NumNodes = 3

	// app 0: two procs on n0, one proc on n1
	for i := 0; i < 2; i++ {
		p := &types.Process{JobID: job.JobID, AppIdx: 0, Node: n0}
		n0.Procs = append(n0.Procs, p)
		n0.NumProcs++
	}
	p := &types.Process{JobID: job.JobID, AppIdx: 0, Node: n1}
	n1.Procs = append(n1.Procs, p)
	n1.NumProcs++

	return job, []*types.Node{n0, n1, n2}
}

func runtimeWithPool(nodes []*types.Node) *Runtime {
	rt := NewRuntime()
	for _, nd := range nodes {
		rt.Pool.Set(nd)
	}
	return rt
}

func TestPPNRoundTrip(t *testing.T) {
	job, nodes := buildAppJob()
	buf := NewBuffer()
	comp := NewCompressor()

	require.NoError(t, EncodePPN(job, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	rt := runtimeWithPool([]*types.Node{
		{Index: 0, Name: "n0", Daemon: nodes[0].Daemon},
		{Index: 1, Name: "n1", Daemon: nodes[1].Daemon},
		{Index: 2, Name: "n2"},
	})
	decoded := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 1}
	require.NoError(t, DecodePPN(rt, decoded, buf, comp))

	require.Equal(t, 2, decoded.Map.NumNodes)

	var gotN0, gotN1 *types.Node
	for _, nd := range decoded.Map.Nodes {
		switch nd.Index {
		case 0:
			gotN0 = nd
		case 1:
			gotN1 = nd
		}
	}
	require.NotNil(t, gotN0)
	require.NotNil(t, gotN1)
	require.Equal(t, 2, gotN0.NumProcs)
	require.Equal(t, 1, gotN1.NumProcs)
}

func TestPPNMasterDiscardsAllApps(t *testing.T) {
	job := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 2}
	n0 := &types.Node{Index: 0, Name: "n0", Daemon: &types.Process{Vpid: 0}}
	job.Map.Nodes = []*types.Node{n0}
	for i := 0; i < 2; i++ {
		p := &types.Process{JobID: job.JobID, AppIdx: int32(i), Node: n0}
		n0.Procs = append(n0.Procs, p)
		n0.NumProcs++
	}

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodePPN(job, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	rt := runtimeWithPool([]*types.Node{{Index: 0, Name: "n0", Daemon: n0.Daemon}})
	rt.IsMaster = true
	decoded := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 2}
	require.NoError(t, DecodePPN(rt, decoded, buf, comp))

	require.Equal(t, 0, decoded.Map.NumNodes)
	require.Empty(t, decoded.Map.Nodes)
	require.Equal(t, 0, buf.Remaining())
}

func TestPPNUnknownNodeIndexIsFatal(t *testing.T) {
	job := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 1}
	n0 := &types.Node{Index: 0, Name: "n0", Daemon: &types.Process{Vpid: 0}}
	job.Map.Nodes = []*types.Node{n0}
	p := &types.Process{JobID: job.JobID, AppIdx: 0, Node: n0}
	n0.Procs = append(n0.Procs, p)
	n0.NumProcs++

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodePPN(job, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	rt := NewRuntime() // empty pool: index 0 does not resolve
	decoded := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 1}
	err := DecodePPN(rt, decoded, buf, comp)
	require.Error(t, err)
	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, ErrNotFound, nerr.Kind)
}

func TestPPNEmptyAppProducesNoPairs(t *testing.T) {
	job := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 1}
	n0 := &types.Node{Index: 0, Name: "n0", Daemon: &types.Process{Vpid: 0}}
	job.Map.Nodes = []*types.Node{n0} // no procs at all

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodePPN(job, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	rt := runtimeWithPool([]*types.Node{{Index: 0, Name: "n0", Daemon: n0.Daemon}})
	decoded := &types.Job{JobID: "app-1", Kind: types.JobKindApplication, NumApps: 1}
	require.NoError(t, DecodePPN(rt, decoded, buf, comp))

	require.Equal(t, 0, decoded.Map.NumNodes)
}
