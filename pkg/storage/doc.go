/*
Package storage provides BoltDB-backed state persistence for the node pool,
topology registry, and daemon job a cluster manager decodes off the wire.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions over three record kinds:
nodes, topologies, and a single daemon job record. All data is serialized
as JSON and stored in separate buckets for efficient querying and isolation.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  BoltStore                                                │
	│    - File: <dataDir>/warren.db                            │
	│    - Format: B+tree with MVCC                             │
	│    - Transactions: ACID with fsync                        │
	│                                                            │
	│  Buckets                                                  │
	│    - nodes      (keyed by node index)                     │
	│    - topologies (keyed by topology index)                 │
	│    - daemonjob  (fixed key, one record)                   │
	│                                                            │
	│  Transaction Management                                  │
	│    - Read:  db.View()   — concurrent snapshots            │
	│    - Write: db.Update() — serialized, atomic commits      │
	│                                                            │
	│  JSON Serialization                                       │
	│    - Marshal:   Go struct → JSON bytes                    │
	│    - Unmarshal: JSON bytes → Go struct                    │
	└────────────────────────────────────────────────────────┘

# Core Components

BoltStore:
  - Implements the Store interface using BoltDB
  - Single database file per manager node
  - Automatic bucket creation on initialization
  - Thread-safe via BoltDB's transaction model

Transaction Model:
  - Read transactions: db.View() — concurrent, consistent snapshots
  - Write transactions: db.Update() — serialized, atomic commits
  - Isolation: snapshot isolation (MVCC)
  - Durability: fsync on commit ensures crash recovery

# CRUD Operations

Node Operations:

Create/Update Node:
  - Upsert by node index (same method for both)
  - JSON serialization of Node
  - Atomic commit via transaction

Get Node:
  - Key lookup by node index
  - Returns error if not found

List Nodes:
  - Cursor iteration over the nodes bucket
  - Deserializes every entry; nil slice if none

Delete Node:
  - Removes the key; idempotent if already absent

Topology Operations:

Create Topology / Get Topology / List Topologies:
  - Same upsert-by-index shape as nodes, scoped to the topology registry

Daemon Job:
  - SaveDaemonJob/GetDaemonJob read and write a single record under a
    fixed key — there is exactly one daemon job per cluster.

# Usage

	store, err := storage.NewBoltStore("/var/lib/warren/manager-1")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	node := &types.Node{Index: 0, Name: "node-01", Slots: 4}
	if err := store.CreateNode(node); err != nil {
		log.Fatal(err)
	}

	nodes, err := store.ListNodes()

	node.Slots = 8
	err = store.UpdateNode(node)

	err = store.DeleteNode(0)

# Design Patterns

Upsert Pattern:
  - Create and Update use the same method (db.Put)
  - No separate "exists" check needed

Idempotent Deletes:
  - Delete returns no error if the key doesn't exist

Cursor Iteration:
  - ForEach pattern for full bucket scans, memory efficient

Error Wrapping:
  - Errors wrapped with context: fmt.Errorf("op failed: %w", err)

# Integration Points

This package integrates with:

  - pkg/manager: the Raft FSM persists decoded NIDMAP/NODEINFO state here
  - pkg/nodemap: supplies the Node/Topology/Job values being persisted
  - pkg/types: all entity definitions

# Security

File Permissions:
  - Database file: 0600 (owner read/write only)
  - Prevents unprivileged access to cluster state

# See Also

  - pkg/manager for Raft FSM integration
  - pkg/nodemap for the wire codecs producing these values
  - pkg/types for entity definitions
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
