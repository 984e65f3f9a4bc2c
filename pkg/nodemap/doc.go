/*
Package nodemap implements the node-map serialization core: the
encode/decode pipeline for three wire messages a cluster master uses
to hand its authoritative allocation view to a peer.

# Messages, in wire order

	NIDMAP    hostnames + per-node daemon rank
	NODEINFO  per-node topology, slot count, slots-given flag
	PPN       per-app, per-node process counts

All three are written onto one TaggedBuffer by the master and read
back, in the same order, by every peer. Decoding mutates a *Runtime —
the node pool, the topology registry, and the daemon job — which this
package collects explicitly instead of touching package-level globals.

# Compression

Every large field is wrapped in a CompressedBlob: a Compressor is
given first refusal, and the wire only carries the uncompressed
length when compression was actually used. Two variants of this
triplet exist and must not be confused — see blob.go.

# Uniformity shortcuts

NODEINFO elides whole per-node arrays in favor of a single tagged
scalar whenever every node agrees: one topology, one slot count, or
one slots-given flag. A non-uniform field is never promoted to a
shortcut by averaging or rounding; it always falls back to carrying
every value.

# Usage

	rt := nodemap.NewRuntime()
	buf := nodemap.NewBuffer()
	comp := nodemap.NewCompressor()

	// master side
	nodemap.EncodeNIDMAP(rt, buf, comp)
	nodemap.EncodeNODEINFO(rt, buf, comp)

	// peer side, same buffer
	peer := nodemap.NewRuntime()
	// DecodeNIDMAP gives every node the first registered topology and
	// fails with ErrNotFound when none is registered.
	peer.Topologies.Register(localSignature, localTopo)
	nodemap.DecodeNIDMAP(peer, buf, comp)
	nodemap.DecodeNODEINFO(peer, buf, comp)
*/
package nodemap
