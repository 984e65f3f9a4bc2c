/*
Package manager implements the Warren cluster manager node with Raft consensus.

The manager package is the control plane of Warren, responsible for cluster
membership and replicating the node-map (the allocation's node pool, topology
registry, and daemon job record) across a quorum of manager processes. Managers
form a highly-available group using the Raft consensus protocol, ensuring every
voter decodes the same wire messages into the same in-memory view even during
leader changes.

# Architecture

A Warren cluster consists of 1-7 manager nodes that form a Raft quorum:

	┌─────────────────────── MANAGER NODE ───────────────────────┐
	│                                                              │
	│  ┌──────────────────────────────────────────────┐          │
	│  │                  Manager                       │          │
	│  │  - Owns raft.Raft + TCP transport              │          │
	│  │  - Issues join tokens                          │          │
	│  │  - Proposes sync_nidmap / sync_nodeinfo        │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │          Raft Consensus Layer                 │          │
	│  │  - Leader election (edge/LAN tuned)           │          │
	│  │  - Log replication across managers            │          │
	│  │  - FSM applies committed commands             │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │         WarrenFSM (Finite State Machine)      │          │
	│  │  - Apply(): decode wire payload, persist      │          │
	│  │  - Snapshot(): serialize nodes/topologies     │          │
	│  │  - Restore(): rebuild Runtime from snapshot   │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │              BoltDB Store                      │          │
	│  │  - Nodes, Topologies, Daemon Job               │          │
	│  └────────────────────────────────────────────────┘         │
	└──────────────────────────────────────────────────────────┘

# Core Components

Manager:
  - Owns the Raft instance, the BoltDB-backed Store, and the node-map Runtime
  - Proposes sync_nidmap/sync_nodeinfo commands carrying raw wire bytes
  - Issues and validates join tokens for new voters

WarrenFSM:
  - Raft finite state machine implementation
  - Decodes NIDMAP/NODEINFO payloads identically on every voter
  - Implements snapshot/restore for fast recovery

TokenManager:
  - Generates and validates join tokens
  - Time-limited, single cluster-wide token namespace

Command:
  - Encapsulates state change operations (create/update/delete node, sync_nidmap, sync_nodeinfo)
  - Serialized as JSON in the Raft log; sync payloads carry raw wire bytes

# Raft Consensus

Warren uses HashiCorp's Raft library for distributed consensus, tuned for
edge/LAN deployments rather than Raft's WAN-conservative defaults (see
raftConfig in manager.go).

Cluster Sizes:
  - 1 manager: Development only (no HA)
  - 3 managers: Production (tolerates 1 failure)
  - 5 managers: High availability (tolerates 2 failures)

Quorum Requirements:
  - Write operations require majority quorum
  - Leader election typically completes in under a second on LAN

Data Replication:
  - All state changes replicated via Raft log
  - Log entries applied to FSM in order
  - Snapshots created by the Raft library's own snapshot policy
  - New managers sync via snapshot + log replay

# Usage

Creating a Manager:

	cfg := &manager.Config{
		NodeID:   "manager-1",
		BindAddr: "192.168.1.10:7000",
		DataDir:  "/var/lib/warren/manager-1",
		IsMaster: true,
	}

	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}

Bootstrapping the first manager:

	err := mgr.Bootstrap()
	if err != nil {
		log.Fatal(err)
	}

Joining additional managers:

	// on the leader
	jt, err := mgr.GenerateJoinToken()
	if err != nil {
		log.Fatal(err)
	}

	// on the new manager (starts its local Raft only)
	err = newMgr.Join("192.168.1.10:7000", jt.Token)
	if err != nil {
		log.Fatal(err)
	}

	// on the leader: validate the token and admit the new voter
	err = mgr.AddVoter(jt.Token, "manager-2", "192.168.1.11:7000")
	if err != nil {
		log.Fatal(err)
	}

Syncing a decoded node-map across the quorum:

	err := mgr.SyncNIDMAP(buf)
	if err != nil {
		log.Fatal(err)
	}

# Leadership

Only the Raft leader can:
  - Accept write operations (Apply)
  - Generate join tokens

Followers:
  - Participate in leader election
  - Replicate log entries from leader
  - Serve reads against their locally-applied Runtime

# State Machine Commands

The FSM processes these command types:

Node Operations:
  - create_node / update_node / delete_node: mutate a single *types.Node

Node-map Sync:
  - sync_nidmap: decode a NIDMAP payload into the Runtime, persist affected nodes and the daemon job
  - sync_nodeinfo: decode a NODEINFO payload into the Runtime, persist affected nodes and topologies

PPN decoding is intentionally not routed through Raft: it targets a specific
*types.Job that sync commands don't carry, so callers decode it directly
against the Runtime the FSM maintains.

# Failure Scenarios

Manager Failure:
  - If follower fails: No impact (quorum maintained)
  - If leader fails: New election, Raft handles seamlessly

Network Partition:
  - Majority partition: Continues operating (elects leader)
  - Minority partition: Rejects writes (no quorum)
  - Partition heals: Minority syncs from majority

# Integration Points

This package integrates with:

  - pkg/nodemap: Decodes NIDMAP/NODEINFO/PPN wire messages into a Runtime
  - pkg/storage: Persists nodes, topologies, and the daemon job to BoltDB
  - pkg/metrics: Exposes Raft gauges, the Raft commit-duration histogram, and the present-node count

# Design Patterns

Command Pattern:
  - All state changes encapsulated as commands
  - Commands serialized and replicated via Raft
  - FSM applies commands to achieve state transitions

Leader Pattern:
  - Single leader coordinates writes
  - Automatic failover on leader failure

Token Pattern:
  - Time-limited join tokens for authenticating new voters

# Security

Join Token Security:
  - Tokens generated with cryptographic randomness
  - Time-limited validity
  - Tokens never logged or exposed in output

# See Also

  - pkg/nodemap for the wire codec decoded by the FSM
  - pkg/storage for state persistence
  - raftConfig in manager.go for Raft configuration
*/
package manager
