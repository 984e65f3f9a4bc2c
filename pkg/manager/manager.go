package manager

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/nodemapd/pkg/log"
	"github.com/cuemby/nodemapd/pkg/metrics"
	"github.com/cuemby/nodemapd/pkg/nodemap"
	"github.com/cuemby/nodemapd/pkg/storage"
	"github.com/cuemby/nodemapd/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Manager represents a cluster manager node: it owns one Runtime for the
// lifetime of the allocation, replicates it via Raft, and mirrors it into
// a durable store. Runtime carries no internal locking, so every mutation
// is routed through Raft's single-threaded FSM apply path instead.
type Manager struct {
	nodeID   string
	bindAddr string
	dataDir  string

	raft         *raft.Raft
	fsm          *WarrenFSM
	store        storage.Store
	tokenManager *TokenManager
	runtime      *nodemap.Runtime
}

// Config holds configuration for creating a Manager.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
	// IsMaster marks this node as the allocation's HNP — the node that
	// owns the node pool rather than decoding it from a peer.
	IsMaster bool
}

// NewManager creates a new Manager instance.
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	rt := nodemap.NewRuntime()
	rt.IsMaster = cfg.IsMaster
	rt.LocalHostname = cfg.NodeID

	fsm := NewWarrenFSM(store, rt)
	tokenManager := NewTokenManager()

	return &Manager{
		nodeID:       cfg.NodeID,
		bindAddr:     cfg.BindAddr,
		dataDir:      cfg.DataDir,
		fsm:          fsm,
		store:        store,
		tokenManager: tokenManager,
		runtime:      rt,
	}, nil
}

// raftConfig builds a raft.Config tuned for edge/LAN deployments rather
// than Raft's WAN-conservative defaults.
//
// Defaults: HeartbeatTimeout=1s, ElectionTimeout=1s, LeaderLeaseTimeout=500ms.
// For sub-10s failover we need faster detection and election:
//   - Leader sends heartbeats every ~50ms (HeartbeatTimeout/10)
//   - Followers wait 500ms without a heartbeat before calling an election
//   - Election completes in ~500ms-1s
//   - Total failover time: ~2-3s
func raftConfig(nodeID string) *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(nodeID)
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	return config
}

func (m *Manager) newRaft() (*raft.Raft, *raft.TCPTransport, error) {
	config := raftConfig(m.nodeID)

	addr, err := net.ResolveTCPAddr("tcp", m.bindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(m.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(m.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-log.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stable store: %w", err)
	}

	r, err := raft.NewRaft(config, m.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create raft: %w", err)
	}

	return r, transport, nil
}

// Bootstrap initializes a new single-node Raft cluster with this manager
// as the allocation's master.
func (m *Manager) Bootstrap() error {
	r, transport, err := m.newRaft()
	if err != nil {
		return err
	}
	m.raft = r
	m.runtime.IsMaster = true

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: raft.ServerID(m.nodeID), Address: transport.LocalAddr()},
		},
	}

	future := m.raft.BootstrapCluster(configuration)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	log.Info(fmt.Sprintf("cluster bootstrapped, node %s is master", m.nodeID))
	return nil
}

// Join starts this manager's local Raft instance so it can be admitted
// to an existing cluster led by a peer at leaderAddr. It does not
// contact the leader and does not check token: the node becomes a
// member only when the leader calls AddVoter with the token it issued
// via GenerateJoinToken.
func (m *Manager) Join(leaderAddr string, token string) error {
	r, _, err := m.newRaft()
	if err != nil {
		return err
	}
	m.raft = r

	log.Info(fmt.Sprintf("node %s joining cluster via leader %s", m.nodeID, leaderAddr))
	_ = token // validated by the leader's own AddVoter call, not locally

	return nil
}

// AddVoter admits a new manager node to the Raft cluster, after
// validating the join token it presents. Must be called on the
// current leader. Join() on the new node does not contact the leader,
// so this is the only place the token is checked.
func (m *Manager) AddVoter(token, nodeID, address string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader, current leader: %s", m.LeaderAddr())
	}

	role, err := m.ValidateJoinToken(token)
	if err != nil {
		return fmt.Errorf("rejecting join for %s: %w", nodeID, err)
	}
	if role != RoleVoter {
		return fmt.Errorf("rejecting join for %s: token role %q cannot join the quorum", nodeID, role)
	}

	future := m.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to add voter: %w", err)
	}

	log.Info(fmt.Sprintf("added voter %s at %s", nodeID, address))
	return nil
}

// RemoveServer removes a server from the Raft cluster.
func (m *Manager) RemoveServer(nodeID string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader")
	}

	future := m.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	return future.Error()
}

// GetClusterServers returns information about all servers in the Raft cluster.
func (m *Manager) GetClusterServers() ([]raft.Server, error) {
	if m.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}
	future := m.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}
	return future.Configuration().Servers, nil
}

// IsLeader returns true if this manager is the Raft leader.
func (m *Manager) IsLeader() bool {
	return m.raft != nil && m.raft.State() == raft.Leader
}

// LeaderAddr returns the address of the current Raft leader.
func (m *Manager) LeaderAddr() string {
	if m.raft == nil {
		return ""
	}
	return string(m.raft.Leader())
}

// GetRaftStats returns Raft statistics.
func (m *Manager) GetRaftStats() map[string]interface{} {
	if m.raft == nil {
		return nil
	}

	stats := map[string]interface{}{
		"state":          m.raft.State().String(),
		"last_log_index": m.raft.LastIndex(),
		"applied_index":  m.raft.AppliedIndex(),
		"leader":         string(m.raft.Leader()),
	}

	if configFuture := m.raft.GetConfiguration(); configFuture.Error() == nil {
		stats["peers"] = uint64(len(configFuture.Configuration().Servers))
	} else {
		stats["peers"] = uint64(0)
	}

	return stats
}

// Apply submits a command to the Raft cluster.
func (m *Manager) Apply(cmd Command) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftCommitDuration)

	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	future := m.raft.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to apply command: %w", err)
	}

	if resp := future.Response(); resp != nil {
		if err, ok := resp.(error); ok && err != nil {
			return err
		}
	}

	return nil
}

// SyncNIDMAP replicates a NIDMAP wire message to the cluster: every
// voter's FSM decodes the same bytes into its own Runtime, so the node
// pool and daemon job converge without a separate replication protocol
// for them.
func (m *Manager) SyncNIDMAP(buf nodemap.TaggedBuffer) error {
	return m.applySync("sync_nidmap", buf)
}

// SyncNODEINFO replicates a NODEINFO wire message to the cluster.
func (m *Manager) SyncNODEINFO(buf nodemap.TaggedBuffer) error {
	return m.applySync("sync_nodeinfo", buf)
}

func (m *Manager) applySync(op string, buf nodemap.TaggedBuffer) error {
	payload := syncPayload{Buffer: buf.Unload()}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return m.Apply(Command{Op: op, Data: data})
}

// CreateNode adds a node to the cluster.
func (m *Manager) CreateNode(node *types.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return m.Apply(Command{Op: "create_node", Data: data})
}

// UpdateNode updates a node in the cluster.
func (m *Manager) UpdateNode(node *types.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return m.Apply(Command{Op: "update_node", Data: data})
}

// DeleteNode removes a node from the cluster.
func (m *Manager) DeleteNode(index int32) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return m.Apply(Command{Op: "delete_node", Data: data})
}

// GetNode retrieves a node by index (read from local store).
func (m *Manager) GetNode(index int32) (*types.Node, error) {
	return m.store.GetNode(index)
}

// ListNodes returns all nodes (read from local store).
func (m *Manager) ListNodes() ([]*types.Node, error) {
	return m.store.ListNodes()
}

// ListTopologies returns all registered topologies (read from local store).
func (m *Manager) ListTopologies() ([]*types.Topology, error) {
	return m.store.ListTopologies()
}

// GetDaemonJob returns the daemon job record (read from local store).
func (m *Manager) GetDaemonJob() (*types.Job, error) {
	return m.store.GetDaemonJob()
}

// Runtime returns the Runtime this manager decodes wire messages into.
func (m *Manager) Runtime() *nodemap.Runtime {
	return m.runtime
}

// GenerateJoinToken issues a new voter-admission token. Only the
// leader can issue one, since only the leader can later admit the
// voter via AddVoter.
func (m *Manager) GenerateJoinToken() (*JoinToken, error) {
	if !m.IsLeader() {
		return nil, fmt.Errorf("not the leader, tokens can only be generated by the leader")
	}
	return m.tokenManager.GenerateToken(24 * time.Hour)
}

// ValidateJoinToken validates a join token.
func (m *Manager) ValidateJoinToken(token string) (string, error) {
	return m.tokenManager.ValidateToken(token)
}

// NodeID returns the manager's node ID.
func (m *Manager) NodeID() string {
	return m.nodeID
}

// Shutdown gracefully shuts down the manager.
func (m *Manager) Shutdown() error {
	if m.raft != nil {
		future := m.raft.Shutdown()
		if err := future.Error(); err != nil {
			return fmt.Errorf("failed to shutdown raft: %w", err)
		}
	}

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}

	return nil
}
