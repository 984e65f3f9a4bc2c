package storage

import (
	"github.com/cuemby/nodemapd/pkg/types"
)

// Store defines the interface for cluster state storage: the durable
// record of the node pool, the topology registry, and the daemon job
// that NIDMAP/NODEINFO decode populate on every peer.
type Store interface {
	// Nodes
	CreateNode(node *types.Node) error
	GetNode(index int32) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(index int32) error

	// Topologies
	CreateTopology(topo *types.Topology) error
	GetTopology(index int32) (*types.Topology, error)
	ListTopologies() ([]*types.Topology, error)

	// Daemon job (singleton record)
	SaveDaemonJob(job *types.Job) error
	GetDaemonJob() (*types.Job, error)

	// Utility
	Close() error
}
