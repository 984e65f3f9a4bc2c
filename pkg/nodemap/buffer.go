package nodemap

import (
	"encoding/binary"
)

// TaggedBuffer is the primitive packer the node-map codecs build on.
// It supports packing/unpacking primitive typed values into a
// growable in-memory byte stream, an Unload that hands the
// accumulated bytes to the caller, and a Load that installs an
// external byte slice for reading. STRING is NUL-terminated;
// BYTE_OBJECT is a size-prefixed raw byte run.
//
// The one implementation shipped here, wireBuffer, is intentionally
// stdlib-only: the byte layout it produces *is* the node-map wire
// protocol, so there is nothing to delegate to a general-purpose
// tagged-value library without breaking wire compatibility.
type TaggedBuffer interface {
	PackUint8(v uint8) error
	PackUint16(v uint16) error
	PackUint32(v uint32) error
	PackInt8(v int8) error
	PackInt16(v int16) error
	PackInt32(v int32) error
	PackBool(v bool) error
	PackSize(v uint64) error
	PackString(v string) error
	PackByteObject(b []byte) error

	UnpackUint8() (uint8, error)
	UnpackUint16() (uint16, error)
	UnpackUint32() (uint32, error)
	UnpackInt8() (int8, error)
	UnpackInt16() (int16, error)
	UnpackInt32() (int32, error)
	UnpackBool() (bool, error)
	UnpackSize() (uint64, error)
	UnpackString() (string, error)
	UnpackByteObject() ([]byte, error)

	// Unload transfers ownership of the accumulated bytes to the
	// caller and leaves the buffer empty, ready for reuse.
	Unload() []byte
	// Load installs external bytes into an empty buffer for reading.
	Load(data []byte)

	// Remaining reports whether any unread bytes are left.
	Remaining() int
}

// NewBuffer returns the module's TaggedBuffer implementation.
func NewBuffer() TaggedBuffer {
	return &wireBuffer{}
}

type wireBuffer struct {
	data   []byte
	offset int
}

func (b *wireBuffer) append(p []byte) {
	b.data = append(b.data, p...)
}

func (b *wireBuffer) take(n int) ([]byte, error) {
	if b.offset+n > len(b.data) {
		return nil, ErrReadPastEnd
	}
	out := b.data[b.offset : b.offset+n]
	b.offset += n
	return out, nil
}

func (b *wireBuffer) Remaining() int {
	return len(b.data) - b.offset
}

func (b *wireBuffer) Unload() []byte {
	out := b.data
	if out == nil {
		out = []byte{}
	}
	b.data = nil
	b.offset = 0
	return out
}

func (b *wireBuffer) Load(data []byte) {
	b.data = data
	b.offset = 0
}

func (b *wireBuffer) PackUint8(v uint8) error {
	b.append([]byte{v})
	return nil
}

func (b *wireBuffer) PackInt8(v int8) error {
	return b.PackUint8(uint8(v))
}

func (b *wireBuffer) PackBool(v bool) error {
	if v {
		return b.PackUint8(1)
	}
	return b.PackUint8(0)
}

func (b *wireBuffer) PackUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.append(buf[:])
	return nil
}

func (b *wireBuffer) PackInt16(v int16) error {
	return b.PackUint16(uint16(v))
}

func (b *wireBuffer) PackUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.append(buf[:])
	return nil
}

func (b *wireBuffer) PackInt32(v int32) error {
	return b.PackUint32(uint32(v))
}

func (b *wireBuffer) PackSize(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.append(buf[:])
	return nil
}

func (b *wireBuffer) PackString(v string) error {
	b.append([]byte(v))
	b.append([]byte{0})
	return nil
}

func (b *wireBuffer) PackByteObject(data []byte) error {
	if err := b.PackSize(uint64(len(data))); err != nil {
		return err
	}
	b.append(data)
	return nil
}

func (b *wireBuffer) UnpackUint8() (uint8, error) {
	raw, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

func (b *wireBuffer) UnpackInt8() (int8, error) {
	v, err := b.UnpackUint8()
	return int8(v), err
}

func (b *wireBuffer) UnpackBool() (bool, error) {
	v, err := b.UnpackUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (b *wireBuffer) UnpackUint16() (uint16, error) {
	raw, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (b *wireBuffer) UnpackInt16() (int16, error) {
	v, err := b.UnpackUint16()
	return int16(v), err
}

func (b *wireBuffer) UnpackUint32() (uint32, error) {
	raw, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (b *wireBuffer) UnpackInt32() (int32, error) {
	v, err := b.UnpackUint32()
	return int32(v), err
}

func (b *wireBuffer) UnpackSize() (uint64, error) {
	raw, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b *wireBuffer) UnpackString() (string, error) {
	start := b.offset
	for i := b.offset; i < len(b.data); i++ {
		if b.data[i] == 0 {
			s := string(b.data[start:i])
			b.offset = i + 1
			return s, nil
		}
	}
	return "", ErrReadPastEnd
}

func (b *wireBuffer) UnpackByteObject() ([]byte, error) {
	sz, err := b.UnpackSize()
	if err != nil {
		return nil, err
	}
	raw, err := b.take(int(sz))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}
