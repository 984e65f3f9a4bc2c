package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/nodemapd/pkg/nodemap"
	"github.com/cuemby/nodemapd/pkg/storage"
	"github.com/cuemby/nodemapd/pkg/types"
	"github.com/hashicorp/raft"
)

// WarrenFSM implements the Raft Finite State Machine that applies decoded
// node-map state to the durable store. Every command carries the tagged
// buffer bytes of one wire message; only the leader's Apply result is
// observed, but every voter's FSM decodes the same bytes into the same
// Runtime so the store stays consistent across the cluster.
type WarrenFSM struct {
	mu    sync.RWMutex
	store storage.Store
	rt    *nodemap.Runtime
}

// NewWarrenFSM creates a new FSM instance backed by store and rt. rt is
// the Runtime every sync_* command decodes into before the resulting
// node pool, topology registry, and daemon job are persisted.
func NewWarrenFSM(store storage.Store, rt *nodemap.Runtime) *WarrenFSM {
	return &WarrenFSM{store: store, rt: rt}
}

// Command represents a state change operation in the Raft log.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// syncPayload is the wire-message envelope carried by sync_nidmap and
// sync_nodeinfo commands.
type syncPayload struct {
	Buffer []byte `json:"buffer"`
}

// Apply applies a Raft log entry to the FSM. This is called by Raft when
// a log entry is committed.
func (f *WarrenFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case "sync_nidmap":
		return f.applySync(cmd.Data, nodemap.DecodeNIDMAP, f.persistNodesAndJob)

	case "sync_nodeinfo":
		return f.applySync(cmd.Data, nodemap.DecodeNODEINFO, f.persistNodesAndTopologies)

	case "create_node":
		var node types.Node
		if err := json.Unmarshal(cmd.Data, &node); err != nil {
			return err
		}
		return f.store.CreateNode(&node)

	case "update_node":
		var node types.Node
		if err := json.Unmarshal(cmd.Data, &node); err != nil {
			return err
		}
		return f.store.UpdateNode(&node)

	case "delete_node":
		var index int32
		if err := json.Unmarshal(cmd.Data, &index); err != nil {
			return err
		}
		return f.store.DeleteNode(index)

	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// decodeFn matches nodemap.DecodeNIDMAP/nodemap.DecodeNODEINFO's shape.
type decodeFn func(rt *nodemap.Runtime, buf nodemap.TaggedBuffer, comp nodemap.Compressor) error

// applySync decodes payload's buffer with decode, then persists whatever
// the decode mutated on f.rt via persist. PPN is intentionally excluded:
// it requires the target *types.Job, which sync commands don't carry in
// this MVP — applications call nodemap.DecodePPN directly against the
// Runtime the FSM maintains rather than routing it through Raft.
func (f *WarrenFSM) applySync(data json.RawMessage, decode decodeFn, persist func() error) interface{} {
	var payload syncPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal sync payload: %v", err)
	}

	buf := nodemap.NewBuffer()
	buf.Load(payload.Buffer)
	comp := nodemap.NewCompressor()

	if err := decode(f.rt, buf, comp); err != nil {
		return fmt.Errorf("failed to decode wire message: %w", err)
	}

	return persist()
}

func (f *WarrenFSM) persistNodesAndJob() error {
	for _, nd := range f.rt.Pool.Present() {
		if err := f.store.UpdateNode(nd); err != nil {
			return err
		}
	}
	if f.rt.DaemonJob != nil {
		if err := f.store.SaveDaemonJob(f.rt.DaemonJob); err != nil {
			return err
		}
	}
	return nil
}

func (f *WarrenFSM) persistNodesAndTopologies() error {
	for _, nd := range f.rt.Pool.Present() {
		if err := f.store.UpdateNode(nd); err != nil {
			return err
		}
	}
	for i := 0; i < f.rt.Topologies.Len(); i++ {
		t := f.rt.Topologies.Get(int32(i))
		if t == nil {
			continue
		}
		if err := f.store.CreateTopology(t); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot creates a point-in-time snapshot of the FSM. This is called
// periodically by Raft to compact the log.
func (f *WarrenFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	nodes, err := f.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %v", err)
	}

	topologies, err := f.store.ListTopologies()
	if err != nil {
		return nil, fmt.Errorf("failed to list topologies: %v", err)
	}

	daemonJob, err := f.store.GetDaemonJob()
	if err != nil {
		daemonJob = nil // no daemon job recorded yet is not fatal for a snapshot
	}

	return &WarrenSnapshot{
		Nodes:      nodes,
		Topologies: topologies,
		DaemonJob:  daemonJob,
	}, nil
}

// Restore restores the FSM from a snapshot. This is called when a node
// restarts or joins the cluster.
func (f *WarrenFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot WarrenSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, node := range snapshot.Nodes {
		if err := f.store.CreateNode(node); err != nil {
			return fmt.Errorf("failed to restore node: %v", err)
		}
		f.rt.Pool.Set(node)
	}

	for _, topo := range snapshot.Topologies {
		if err := f.store.CreateTopology(topo); err != nil {
			return fmt.Errorf("failed to restore topology: %v", err)
		}
		f.rt.Topologies.Replace(topo.Index, topo)
	}

	if snapshot.DaemonJob != nil {
		if err := f.store.SaveDaemonJob(snapshot.DaemonJob); err != nil {
			return fmt.Errorf("failed to restore daemon job: %v", err)
		}
		f.rt.DaemonJob = snapshot.DaemonJob
	}

	return nil
}

// WarrenSnapshot represents a point-in-time snapshot of cluster state.
type WarrenSnapshot struct {
	Nodes      []*types.Node
	Topologies []*types.Topology
	DaemonJob  *types.Job
}

// Persist writes the snapshot to the given SnapshotSink.
func (s *WarrenSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
	}

	return err
}

// Release releases the snapshot resources.
func (s *WarrenSnapshot) Release() {}
