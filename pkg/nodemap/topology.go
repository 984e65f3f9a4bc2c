package nodemap

import "github.com/cuemby/nodemapd/pkg/types"

// Registry is the process-wide array of registered hardware
// topologies. Index 0 is conventionally the master's.
type Registry struct {
	entries []*types.Topology
	// LocalSignature is compared against a replaced entry's signature
	// before it is discarded, so a decode that replaces the local
	// topology's slot never frees locally-owned data.
	LocalSignature string
}

// NewRegistry returns an empty topology registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Len reports the registry's backing array size (including nil slots).
func (r *Registry) Len() int {
	return len(r.entries)
}

// Get returns the topology at index, or nil if unset or out of range.
func (r *Registry) Get(index int32) *types.Topology {
	if index < 0 || int(index) >= len(r.entries) {
		return nil
	}
	return r.entries[index]
}

// FirstNonNil returns the first non-nil entry at or after start, used
// by NIDMAP decode to pick a default-homogeneous topology for newly
// constructed nodes.
func (r *Registry) FirstNonNil(start int) *types.Topology {
	for i := start; i < len(r.entries); i++ {
		if r.entries[i] != nil {
			return r.entries[i]
		}
	}
	return nil
}

// CountFrom returns the number of non-nil entries at or after start,
// used to compute NODEINFO's ntopos field.
func (r *Registry) CountFrom(start int) int {
	n := 0
	for i := start; i < len(r.entries); i++ {
		if r.entries[i] != nil {
			n++
		}
	}
	return n
}

// All returns the non-nil entries at or after start, in index order.
func (r *Registry) All(start int) []*types.Topology {
	var out []*types.Topology
	for i := start; i < len(r.entries); i++ {
		if r.entries[i] != nil {
			out = append(out, r.entries[i])
		}
	}
	return out
}

// Register appends a new topology and returns its assigned index.
func (r *Registry) Register(sig string, topo []byte) int32 {
	idx := int32(len(r.entries))
	r.entries = append(r.entries, &types.Topology{Index: idx, Signature: sig, Topo: topo})
	return idx
}

// Replace installs t at index, growing the backing array if needed.
// If an entry already occupies that slot and its signature matches
// the registry's LocalSignature, its Signature/Topo fields are
// nulled out before the slot is overwritten — the local topology's
// payload is never considered owned by the incoming message.
func (r *Registry) Replace(index int32, t *types.Topology) {
	for int32(len(r.entries)) <= index {
		r.entries = append(r.entries, nil)
	}
	if old := r.entries[index]; old != nil && r.LocalSignature != "" && old.Signature == r.LocalSignature {
		old.Signature = ""
		old.Topo = nil
	}
	t.Index = index
	r.entries[index] = t
}
