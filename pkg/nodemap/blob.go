package nodemap

// writeBlobA packs the recurring {compressed?, [uncompressed_size],
// byte_object} triplet (variant A) used by nidmap node names, ppn apps,
// and NODEINFO's topology records and per-node topology assignments.
// NODEINFO's slots and flags bodies are written inline in nodeinfo.go
// with an int16/int8 discriminator in place of the bool.
func writeBlobA(buf TaggedBuffer, comp Compressor, raw []byte, op string) error {
	payload, used := comp.CompressBlock(raw)
	if err := buf.PackBool(used); err != nil {
		return wrapErr(ErrPackFail, op, err)
	}
	if used {
		if err := buf.PackSize(uint64(len(raw))); err != nil {
			return wrapErr(ErrPackFail, op, err)
		}
	} else {
		payload = raw
	}
	if err := buf.PackByteObject(payload); err != nil {
		return wrapErr(ErrPackFail, op, err)
	}
	return nil
}

// readBlobA is the matching decode half of writeBlobA.
func readBlobA(buf TaggedBuffer, comp Compressor, op string) ([]byte, error) {
	compressed, err := buf.UnpackBool()
	if err != nil {
		return nil, wrapErr(ErrUnpackFail, op, err)
	}
	var uncompressedSize uint64
	if compressed {
		uncompressedSize, err = buf.UnpackSize()
		if err != nil {
			return nil, wrapErr(ErrUnpackFail, op, err)
		}
	}
	bo, err := buf.UnpackByteObject()
	if err != nil {
		return nil, wrapErr(ErrUnpackFail, op, err)
	}
	if !compressed {
		return bo, nil
	}
	out, err := comp.DecompressBlock(bo, int(uncompressedSize))
	if err != nil {
		return nil, wrapErr(ErrDecompressFail, op, err)
	}
	return out, nil
}

// writeBlobB packs variant B of the triplet — used only by NIDMAP's
// vpids block — where the element width is interleaved between the
// flag and the optional uncompressed size. This field order is part
// of the wire format and must not be collapsed into writeBlobA.
func writeBlobB(buf TaggedBuffer, comp Compressor, raw []byte, nbytes uint8, op string) error {
	payload, used := comp.CompressBlock(raw)
	if err := buf.PackBool(used); err != nil {
		return wrapErr(ErrPackFail, op, err)
	}
	if err := buf.PackUint8(nbytes); err != nil {
		return wrapErr(ErrPackFail, op, err)
	}
	if used {
		if err := buf.PackSize(uint64(len(raw))); err != nil {
			return wrapErr(ErrPackFail, op, err)
		}
	} else {
		payload = raw
	}
	if err := buf.PackByteObject(payload); err != nil {
		return wrapErr(ErrPackFail, op, err)
	}
	return nil
}

// readBlobB is the matching decode half of writeBlobB. It returns the
// decoded bytes and the element width carried on the wire.
func readBlobB(buf TaggedBuffer, comp Compressor, op string) ([]byte, uint8, error) {
	compressed, err := buf.UnpackBool()
	if err != nil {
		return nil, 0, wrapErr(ErrUnpackFail, op, err)
	}
	nbytes, err := buf.UnpackUint8()
	if err != nil {
		return nil, 0, wrapErr(ErrUnpackFail, op, err)
	}
	var uncompressedSize uint64
	if compressed {
		uncompressedSize, err = buf.UnpackSize()
		if err != nil {
			return nil, 0, wrapErr(ErrUnpackFail, op, err)
		}
	}
	bo, err := buf.UnpackByteObject()
	if err != nil {
		return nil, 0, wrapErr(ErrUnpackFail, op, err)
	}
	if !compressed {
		return bo, nbytes, nil
	}
	out, err := comp.DecompressBlock(bo, int(uncompressedSize))
	if err != nil {
		return nil, 0, wrapErr(ErrDecompressFail, op, err)
	}
	return out, nbytes, nil
}
