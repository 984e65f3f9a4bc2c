package nodemap

import "github.com/cuemby/nodemapd/pkg/types"

// NodePool is the densely-indexed, possibly-sparse array of nodes in
// the allocation. Indices are stable identifiers reused across
// NIDMAP, NODEINFO and PPN.
type NodePool struct {
	nodes []*types.Node
}

// NewNodePool returns an empty node pool.
func NewNodePool() *NodePool {
	return &NodePool{}
}

// Size is the pool's backing-array capacity, including empty slots —
// this is the value NIDMAP's nbytes width selection and NODEINFO's
// raw slots/flags arrays are sized against.
func (p *NodePool) Size() int {
	return len(p.nodes)
}

// Grow ensures the pool can address index n.
func (p *NodePool) Grow(n int) {
	for len(p.nodes) <= n {
		p.nodes = append(p.nodes, nil)
	}
}

// Get returns the node at index, or nil if the slot is empty or out
// of range.
func (p *NodePool) Get(index int) *types.Node {
	if index < 0 || index >= len(p.nodes) {
		return nil
	}
	return p.nodes[index]
}

// Set installs node at its own Index, growing the pool if needed.
func (p *NodePool) Set(node *types.Node) {
	p.Grow(int(node.Index))
	p.nodes[node.Index] = node
}

// CountPresent returns the number of non-nil entries.
func (p *NodePool) CountPresent() int {
	n := 0
	for _, nd := range p.nodes {
		if nd != nil {
			n++
		}
	}
	return n
}

// Present iterates present nodes in index order.
func (p *NodePool) Present() []*types.Node {
	out := make([]*types.Node, 0, len(p.nodes))
	for _, nd := range p.nodes {
		if nd != nil {
			out = append(out, nd)
		}
	}
	return out
}

// RoutingPlanUpdater is the external process-naming and routing-plan
// collaborator — interface only. NIDMAP decode calls it once, after
// the node pool is populated.
type RoutingPlanUpdater interface {
	Update(rt *Runtime) error
}

// NoopRoutingPlan never updates anything; it is the Runtime default.
type NoopRoutingPlan struct{}

func (NoopRoutingPlan) Update(*Runtime) error { return nil }

// Runtime collects the process-wide state the decoders mutate (node
// pool, topology registry, two global booleans, daemon job, and the
// routing-plan collaborator) into one explicit context instead of
// package globals. Callers are responsible for serializing access to
// a given Runtime: it carries no internal locking.
type Runtime struct {
	Pool       *NodePool
	Topologies *Registry
	DaemonJob  *types.Job

	HNPIsAllocated     bool
	ManagedAllocation  bool
	NumDaemons         int

	// IsMaster gates the NIDMAP/PPN decode short-circuit: the master
	// already owns this state, so decoding still consumes the message
	// but builds no nodes, processes or job map. NIDMAP decode still
	// stores HNPIsAllocated and ManagedAllocation before returning.
	IsMaster bool

	// MasterInAllocation and MasterHostsApps together decide where
	// NODEINFO's topology scan starts: scanning begins at index 1
	// unless the master is in the allocation AND permitted to host
	// application processes.
	MasterInAllocation bool
	MasterHostsApps    bool

	// LocalHostname and LocalAliases feed the "alias" attribute
	// NIDMAP decode attaches to the node matching this process's own
	// hostname.
	LocalHostname string
	LocalAliases  []string

	RoutingPlan RoutingPlanUpdater
}

// NewRuntime returns a Runtime ready to decode into, with an empty
// node pool, an empty topology registry, and a no-op routing plan.
func NewRuntime() *Runtime {
	return &Runtime{
		Pool:        NewNodePool(),
		Topologies:  NewRegistry(),
		RoutingPlan: NoopRoutingPlan{},
	}
}

// topologyStart returns the index NODEINFO's topology scan begins at.
func (rt *Runtime) topologyStart() int {
	if !rt.MasterInAllocation || !rt.MasterHostsApps {
		return 1
	}
	return 0
}
