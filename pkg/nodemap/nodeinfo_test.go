package nodemap

import (
	"testing"

	"github.com/cuemby/nodemapd/pkg/types"
	"github.com/stretchr/testify/require"
)

func poolOfSize(n int, slots uint16, slotsGiven bool) *Runtime {
	rt := NewRuntime()
	for i := 0; i < n; i++ {
		rt.Pool.Set(&types.Node{Index: int32(i), Name: "node", Slots: slots, SlotsGiven: slotsGiven})
	}
	return rt
}

func TestNODEINFOUniformEverythingIsFourBytes(t *testing.T) {
	rt := poolOfSize(3, 4, true)
	topo := &types.Topology{Index: 0, Signature: "sig-a", Topo: []byte("xml")}
	rt.Topologies.Replace(0, topo)
	for _, nd := range rt.Pool.Present() {
		nd.Topology = topo
	}

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNODEINFO(rt, buf, comp))

	raw := buf.Unload()
	require.Len(t, raw, 4) // ntopos(1) + uniform slots int16(2) + uniform flags int8(1)

	buf.Load(raw)
	peer := poolOfSize(3, 0, false)
	require.NoError(t, DecodeNODEINFO(peer, buf, comp))

	for _, nd := range peer.Pool.Present() {
		require.EqualValues(t, 4, nd.Slots)
		require.True(t, nd.SlotsGiven)
	}
	require.Equal(t, 0, buf.Remaining())
}

func TestNODEINFOHeterogeneousSlots(t *testing.T) {
	rt := NewRuntime()
	rt.Pool.Set(&types.Node{Index: 0, Name: "n0", Slots: 4, SlotsGiven: true})
	rt.Pool.Set(&types.Node{Index: 1, Name: "n1", Slots: 8, SlotsGiven: true})
	rt.Pool.Set(&types.Node{Index: 2, Name: "n2", Slots: 4, SlotsGiven: false})
	topo := &types.Topology{Index: 0, Signature: "sig-a", Topo: []byte("xml")}
	rt.Topologies.Replace(0, topo)
	for _, nd := range rt.Pool.Present() {
		nd.Topology = topo
	}

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNODEINFO(rt, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	peer := NewRuntime()
	peer.Pool.Grow(2)
	for i := 0; i < 3; i++ {
		peer.Pool.Set(&types.Node{Index: int32(i), Name: "node"})
	}
	require.NoError(t, DecodeNODEINFO(peer, buf, comp))

	require.EqualValues(t, 4, peer.Pool.Get(0).Slots)
	require.EqualValues(t, 8, peer.Pool.Get(1).Slots)
	require.EqualValues(t, 4, peer.Pool.Get(2).Slots)
	require.True(t, peer.Pool.Get(0).SlotsGiven)
	require.True(t, peer.Pool.Get(1).SlotsGiven)
	require.False(t, peer.Pool.Get(2).SlotsGiven)
}

func TestNODEINFOMultipleTopologiesNotInAllocation(t *testing.T) {
	rt := NewRuntime()
	rt.MasterInAllocation = false // scan starts at index 1, master's own slot (0) excluded

	topoA := &types.Topology{Signature: "sig-a", Topo: []byte("a")}
	topoB := &types.Topology{Signature: "sig-b", Topo: []byte("b")}
	rt.Topologies.Replace(0, topoA) // master's own slot, not exported
	rt.Topologies.Replace(1, topoB)

	rt.Pool.Set(&types.Node{Index: 0, Name: "n0", Topology: topoB})
	rt.Pool.Set(&types.Node{Index: 1, Name: "n1", Topology: topoB})

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNODEINFO(rt, buf, comp))

	raw := buf.Unload()
	ntopos := int8(raw[0])
	require.EqualValues(t, 1, ntopos) // only topoB counted; ntopos<=1 means no topology bodies follow
}

func TestNODEINFOTopologyAssignmentResolvesRegistryIndex(t *testing.T) {
	rt := NewRuntime()
	rt.MasterInAllocation = true
	rt.MasterHostsApps = true

	topoA := &types.Topology{Signature: "sig-a", Topo: []byte("a")}
	topoB := &types.Topology{Signature: "sig-b", Topo: []byte("b")}
	rt.Topologies.Replace(0, topoA)
	rt.Topologies.Replace(1, topoB)

	rt.Pool.Set(&types.Node{Index: 0, Name: "n0", Topology: topoA})
	rt.Pool.Set(&types.Node{Index: 1, Name: "n1", Topology: topoB})

	buf := NewBuffer()
	comp := NewCompressor()
	require.NoError(t, EncodeNODEINFO(rt, buf, comp))

	raw := buf.Unload()
	buf.Load(raw)

	peer := NewRuntime()
	peer.MasterInAllocation = true
	peer.MasterHostsApps = true
	peer.Pool.Set(&types.Node{Index: 0, Name: "n0"})
	peer.Pool.Set(&types.Node{Index: 1, Name: "n1"})
	require.NoError(t, DecodeNODEINFO(peer, buf, comp))

	require.Equal(t, "sig-a", peer.Pool.Get(0).Topology.Signature)
	require.Equal(t, "sig-b", peer.Pool.Get(1).Topology.Signature)
}
