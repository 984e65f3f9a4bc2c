package nodemap

import "github.com/cuemby/nodemapd/pkg/types"

// slotsDiscriminator encodes the NODEINFO slots convention: negative
// int16 = uniform value (negated), 0 = raw, 1 = compressed.
const (
	slotsRaw        int16 = 0
	slotsCompressed int16 = 1
)

// flagsDiscriminator encodes the NODEINFO flags convention: negative
// int8 = uniform (-1 all set, -2 all clear), 2 = compressed, 3 = raw.
const (
	flagsUniformSet   int8 = -1
	flagsUniformClear int8 = -2
	flagsCompressed   int8 = 2
	flagsRaw          int8 = 3
)

// EncodeNODEINFO writes per-node topologies, slots and slots-given
// flags, each collapsed into a single tagged scalar whenever the pool
// is uniform.
func EncodeNODEINFO(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	if err := encodeTopologies(rt, buf, comp); err != nil {
		return err
	}
	if err := encodeSlots(rt, buf, comp); err != nil {
		return err
	}
	return encodeSlotsGiven(rt, buf, comp)
}

func encodeTopologies(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	start := rt.topologyStart()
	topos := rt.Topologies.All(start)
	ntopos := len(topos)
	if ntopos > 127 {
		ntopos = 127 // int8 range; pathological case, never hit in practice
	}
	if err := buf.PackInt8(int8(ntopos)); err != nil {
		return wrapErr(ErrPackFail, "nodeinfo.encode.ntopos", err)
	}
	if ntopos <= 1 {
		return nil
	}

	recBuf := NewBuffer()
	for _, t := range topos {
		if err := recBuf.PackInt32(t.Index); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.topo", err)
		}
		if err := recBuf.PackString(t.Signature); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.topo", err)
		}
		if err := recBuf.PackByteObject(t.Topo); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.topo", err)
		}
	}
	if err := writeBlobA(buf, comp, recBuf.Unload(), "nodeinfo.encode.topo_records"); err != nil {
		return err
	}

	assignBuf := NewBuffer()
	for _, nd := range rt.Pool.Present() {
		idx := int8(-1)
		if nd.Topology != nil {
			idx = int8(nd.Topology.Index)
		}
		if err := assignBuf.PackInt8(idx); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.topo_assign", err)
		}
	}
	return writeBlobA(buf, comp, assignBuf.Unload(), "nodeinfo.encode.topo_assign")
}

func encodeSlots(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	size := rt.Pool.Size()
	unislots := true
	var slot uint16
	haveSlot := false
	raw := make([]byte, size*2)
	for n := 0; n < size; n++ {
		nd := rt.Pool.Get(n)
		if nd == nil {
			continue
		}
		raw[2*n] = byte(nd.Slots >> 8)
		raw[2*n+1] = byte(nd.Slots)
		if !haveSlot {
			slot = nd.Slots
			haveSlot = true
		} else if nd.Slots != slot {
			unislots = false
		}
	}

	if unislots {
		return wrapErr(ErrPackFail, "nodeinfo.encode.slots", buf.PackInt16(-int16(slot)))
	}

	payload, used := comp.CompressBlock(raw)
	if used {
		if err := buf.PackInt16(slotsCompressed); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.slots", err)
		}
		if err := buf.PackSize(uint64(len(raw))); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.slots", err)
		}
	} else {
		payload = raw
		if err := buf.PackInt16(slotsRaw); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.slots", err)
		}
	}
	if err := buf.PackByteObject(payload); err != nil {
		return wrapErr(ErrPackFail, "nodeinfo.encode.slots", err)
	}
	return nil
}

func encodeSlotsGiven(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	size := rt.Pool.Size()
	uniflags := true
	flag := int8(-1) // UINT8_MAX sentinel, i.e. "not yet seen"
	raw := make([]byte, 0, size)
	for n := 0; n < size; n++ {
		nd := rt.Pool.Get(n)
		if nd == nil {
			continue
		}
		var v int8
		if nd.SlotsGiven {
			v = 1
		}
		raw = append(raw, byte(v))
		if flag == -1 {
			flag = v
		} else if flag != v {
			uniflags = false
		}
	}

	if uniflags {
		if flag == 1 {
			return wrapErr(ErrPackFail, "nodeinfo.encode.flags", buf.PackInt8(flagsUniformSet))
		}
		return wrapErr(ErrPackFail, "nodeinfo.encode.flags", buf.PackInt8(flagsUniformClear))
	}

	payload, used := comp.CompressBlock(raw)
	if used {
		if err := buf.PackInt8(flagsCompressed); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.flags", err)
		}
		if err := buf.PackSize(uint64(len(raw))); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.flags", err)
		}
	} else {
		payload = raw
		if err := buf.PackInt8(flagsRaw); err != nil {
			return wrapErr(ErrPackFail, "nodeinfo.encode.flags", err)
		}
	}
	if err := buf.PackByteObject(payload); err != nil {
		return wrapErr(ErrPackFail, "nodeinfo.encode.flags", err)
	}
	return nil
}

// DecodeNODEINFO reads a NODEINFO message and mutates every present
// node in rt.Pool. Per-node topology assignment is read as one int8
// per present node and resolved against the registry; slots-given is
// one byte per present node on both encode and decode (no bit-packing).
func DecodeNODEINFO(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	if err := decodeTopologies(rt, buf, comp); err != nil {
		return err
	}
	if err := decodeSlots(rt, buf, comp); err != nil {
		return err
	}
	return decodeSlotsGiven(rt, buf, comp)
}

func decodeTopologies(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	ntopos, err := buf.UnpackInt8()
	if err != nil {
		return wrapErr(ErrUnpackFail, "nodeinfo.decode.ntopos", err)
	}
	if ntopos <= 1 {
		return nil
	}

	recRaw, err := readBlobA(buf, comp, "nodeinfo.decode.topo_records")
	if err != nil {
		return err
	}
	recBuf := NewBuffer()
	recBuf.Load(recRaw)
	for i := int8(0); i < ntopos; i++ {
		idx, err := recBuf.UnpackInt32()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.topo_records", err)
		}
		sig, err := recBuf.UnpackString()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.topo_records", err)
		}
		topo, err := recBuf.UnpackByteObject()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.topo_records", err)
		}
		newTopo := &types.Topology{Index: idx, Signature: sig, Topo: topo}
		newTopo.UserData = summarizeTopology(topo)
		rt.Topologies.Replace(idx, newTopo)
	}

	assignRaw, err := readBlobA(buf, comp, "nodeinfo.decode.topo_assign")
	if err != nil {
		return err
	}
	m := 0
	for n := 0; n < rt.Pool.Size(); n++ {
		nd := rt.Pool.Get(n)
		if nd == nil {
			continue
		}
		if m >= len(assignRaw) {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.topo_assign", ErrReadPastEnd)
		}
		i8 := int8(assignRaw[m])
		m++
		t := rt.Topologies.Get(int32(i8))
		if t == nil {
			return wrapErr(ErrNotFound, "nodeinfo.decode.topo_assign", ErrReadPastEnd)
		}
		nd.Topology = t
	}
	return nil
}

func decodeSlots(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	i16, err := buf.UnpackInt16()
	if err != nil {
		return wrapErr(ErrUnpackFail, "nodeinfo.decode.slots", err)
	}
	if i16 < 0 {
		v := uint16(-i16)
		for _, nd := range rt.Pool.Present() {
			nd.Slots = v
		}
		return nil
	}

	var raw []byte
	if i16 == int16(slotsCompressed) {
		sz, err := buf.UnpackSize()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.slots", err)
		}
		bo, err := buf.UnpackByteObject()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.slots", err)
		}
		raw, err = comp.DecompressBlock(bo, int(sz))
		if err != nil {
			return wrapErr(ErrDecompressFail, "nodeinfo.decode.slots", err)
		}
	} else {
		raw, err = buf.UnpackByteObject()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.slots", err)
		}
	}

	m := 0
	for n := 0; n < rt.Pool.Size(); n++ {
		nd := rt.Pool.Get(n)
		if nd == nil {
			continue
		}
		if (m+1)*2 > len(raw) {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.slots", ErrReadPastEnd)
		}
		nd.Slots = uint16(raw[2*m])<<8 | uint16(raw[2*m+1])
		m++
	}
	return nil
}

func decodeSlotsGiven(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	i8, err := buf.UnpackInt8()
	if err != nil {
		return wrapErr(ErrUnpackFail, "nodeinfo.decode.flags", err)
	}
	if i8 < 0 {
		given := (i8 + 2) != 0
		for _, nd := range rt.Pool.Present() {
			nd.SlotsGiven = given
		}
		return nil
	}

	var raw []byte
	if i8 == flagsCompressed {
		sz, err := buf.UnpackSize()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.flags", err)
		}
		bo, err := buf.UnpackByteObject()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.flags", err)
		}
		raw, err = comp.DecompressBlock(bo, int(sz))
		if err != nil {
			return wrapErr(ErrDecompressFail, "nodeinfo.decode.flags", err)
		}
	} else {
		raw, err = buf.UnpackByteObject()
		if err != nil {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.flags", err)
		}
	}

	m := 0
	for n := 0; n < rt.Pool.Size(); n++ {
		nd := rt.Pool.Get(n)
		if nd == nil {
			continue
		}
		if m >= len(raw) {
			return wrapErr(ErrUnpackFail, "nodeinfo.decode.flags", ErrReadPastEnd)
		}
		nd.SlotsGiven = raw[m] != 0
		m++
	}
	return nil
}

// summarizeTopology computes a cheap digest of a newly-inserted
// topology's opaque blob and attaches it as the topology's user data.
// The real hwloc-equivalent summary (core/socket/NUMA counts) is out
// of scope here; a 32-bit FNV-1a hash of the blob is enough to let callers
// compare topologies without re-parsing Topo.
func summarizeTopology(topo []byte) any {
	var h uint32 = 2166136261
	for _, b := range topo {
		h ^= uint32(b)
		h *= 16777619
	}
	return h
}
