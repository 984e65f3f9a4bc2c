package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/cuemby/nodemapd/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes      = []byte("nodes")
	bucketTopologies = []byte("topologies")
	bucketDaemonJob  = []byte("daemonjob")
)

const daemonJobKey = "singleton"

// BoltStore implements Store using BoltDB, one bucket per record kind.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store rooted at dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "warren.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{bucketNodes, bucketTopologies, bucketDaemonJob}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func nodeKey(index int32) []byte {
	return []byte(strconv.Itoa(int(index)))
}

// Node operations

func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put(nodeKey(node.Index), data)
	})
}

func (s *BoltStore) GetNode(index int32) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get(nodeKey(index))
		if data == nil {
			return fmt.Errorf("node not found: %d", index)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.CreateNode(node) // same as create (upsert)
}

func (s *BoltStore) DeleteNode(index int32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.Delete(nodeKey(index))
	})
}

// Topology operations

func (s *BoltStore) CreateTopology(topo *types.Topology) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTopologies)
		data, err := json.Marshal(topo)
		if err != nil {
			return err
		}
		return b.Put(nodeKey(topo.Index), data)
	})
}

func (s *BoltStore) GetTopology(index int32) (*types.Topology, error) {
	var topo types.Topology
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTopologies)
		data := b.Get(nodeKey(index))
		if data == nil {
			return fmt.Errorf("topology not found: %d", index)
		}
		return json.Unmarshal(data, &topo)
	})
	if err != nil {
		return nil, err
	}
	return &topo, nil
}

func (s *BoltStore) ListTopologies() ([]*types.Topology, error) {
	var topos []*types.Topology
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTopologies)
		return b.ForEach(func(k, v []byte) error {
			var topo types.Topology
			if err := json.Unmarshal(v, &topo); err != nil {
				return err
			}
			topos = append(topos, &topo)
			return nil
		})
	})
	return topos, err
}

// Daemon job operations — one record per cluster, keyed by a constant.

func (s *BoltStore) SaveDaemonJob(job *types.Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDaemonJob)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return b.Put([]byte(daemonJobKey), data)
	})
}

func (s *BoltStore) GetDaemonJob() (*types.Job, error) {
	var job types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDaemonJob)
		data := b.Get([]byte(daemonJobKey))
		if data == nil {
			return fmt.Errorf("daemon job not recorded yet")
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}
