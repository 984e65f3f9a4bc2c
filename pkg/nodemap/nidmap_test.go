package nodemap

import (
	"testing"

	"github.com/cuemby/nodemapd/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestVpidWidthSelection(t *testing.T) {
	cases := []struct {
		poolSize int
		want     int
	}{
		{256, 1},
		{257, 2},
		{65536, 2},
		{65537, 4},
	}
	for _, c := range cases {
		require.Equal(t, c.want, vpidWidth(c.poolSize), "poolSize=%d", c.poolSize)
	}
}

func buildMasterRuntime() *Runtime {
	rt := NewRuntime()
	rt.DaemonJob = &types.Job{JobID: "daemon-job", Kind: types.JobKindDaemon}
	rt.Pool.Set(&types.Node{Index: 0, Name: "n0", Daemon: &types.Process{JobID: "daemon-job", Vpid: 0, HasVpid: true}})
	rt.Pool.Set(&types.Node{Index: 1, Name: "n1", Daemon: &types.Process{JobID: "daemon-job", Vpid: 1, HasVpid: true}})
	rt.Pool.Set(&types.Node{Index: 2, Name: "n2"}) // no daemon
	rt.HNPIsAllocated = true
	rt.ManagedAllocation = true
	return rt
}

func TestNIDMAPRoundTrip(t *testing.T) {
	master := buildMasterRuntime()
	buf := NewBuffer()
	comp := NewCompressor()

	require.NoError(t, EncodeNIDMAP(master, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	peer := NewRuntime()
	peer.Topologies.Register("sig-0", []byte("topo-0"))
	require.NoError(t, DecodeNIDMAP(peer, buf, comp))

	require.True(t, peer.HNPIsAllocated)
	require.True(t, peer.ManagedAllocation)
	require.Equal(t, 3, peer.Pool.CountPresent())

	n0 := peer.Pool.Get(0)
	require.NotNil(t, n0)
	require.Equal(t, "n0", n0.Name)
	require.NotNil(t, n0.Daemon)
	require.EqualValues(t, 0, n0.Daemon.Vpid)

	n1 := peer.Pool.Get(1)
	require.NotNil(t, n1)
	require.NotNil(t, n1.Daemon)
	require.EqualValues(t, 1, n1.Daemon.Vpid)

	n2 := peer.Pool.Get(2)
	require.NotNil(t, n2)
	require.Nil(t, n2.Daemon)

	require.Equal(t, 2, peer.NumDaemons)
}

func TestNIDMAPMasterShortCircuit(t *testing.T) {
	master := buildMasterRuntime()
	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNIDMAP(master, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	other := NewRuntime()
	other.IsMaster = true
	require.NoError(t, DecodeNIDMAP(other, buf, comp))

	require.Equal(t, 0, other.Pool.CountPresent())
	require.Nil(t, other.DaemonJob)
	require.Equal(t, 0, buf.Remaining())
}

func TestNIDMAPLocalAliasAttribute(t *testing.T) {
	master := buildMasterRuntime()
	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNIDMAP(master, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	peer := NewRuntime()
	peer.Topologies.Register("sig-0", []byte("topo-0"))
	peer.LocalHostname = "n1"
	peer.LocalAliases = []string{"n1.cluster.local"}
	require.NoError(t, DecodeNIDMAP(peer, buf, comp))

	n1 := peer.Pool.Get(1)
	require.NotNil(t, n1)
	require.Equal(t, []string{"n1.cluster.local"}, n1.Attrs["alias"])

	n0 := peer.Pool.Get(0)
	require.Nil(t, n0.Attrs)
}

func TestNIDMAPRoutingPlanInvoked(t *testing.T) {
	master := buildMasterRuntime()
	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNIDMAP(master, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	peer := NewRuntime()
	peer.Topologies.Register("sig-0", []byte("topo-0"))
	var called bool
	peer.RoutingPlan = routingPlanFunc(func(rt *Runtime) error {
		called = true
		require.Equal(t, 3, rt.Pool.CountPresent())
		return nil
	})
	require.NoError(t, DecodeNIDMAP(peer, buf, comp))
	require.True(t, called)
}

func TestNIDMAPDecodeFailsWithoutRegisteredTopology(t *testing.T) {
	master := buildMasterRuntime()
	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNIDMAP(master, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	peer := NewRuntime()
	err := DecodeNIDMAP(peer, buf, comp)
	require.Error(t, err)
	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, ErrNotFound, nerr.Kind)
}

type routingPlanFunc func(rt *Runtime) error

func (f routingPlanFunc) Update(rt *Runtime) error { return f(rt) }
