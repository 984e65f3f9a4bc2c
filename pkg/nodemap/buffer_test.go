package nodemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPrimitiveRoundTrip(t *testing.T) {
	buf := NewBuffer()
	require.NoError(t, buf.PackUint8(7))
	require.NoError(t, buf.PackInt8(-7))
	require.NoError(t, buf.PackUint16(1234))
	require.NoError(t, buf.PackInt16(-1234))
	require.NoError(t, buf.PackUint32(987654))
	require.NoError(t, buf.PackInt32(-987654))
	require.NoError(t, buf.PackBool(true))
	require.NoError(t, buf.PackSize(42))
	require.NoError(t, buf.PackString("node01"))
	require.NoError(t, buf.PackByteObject([]byte{1, 2, 3}))

	raw := buf.Unload()
	buf.Load(raw)

	u8, err := buf.UnpackUint8()
	require.NoError(t, err)
	assert.EqualValues(t, 7, u8)

	i8, err := buf.UnpackInt8()
	require.NoError(t, err)
	assert.EqualValues(t, -7, i8)

	u16, err := buf.UnpackUint16()
	require.NoError(t, err)
	assert.EqualValues(t, 1234, u16)

	i16, err := buf.UnpackInt16()
	require.NoError(t, err)
	assert.EqualValues(t, -1234, i16)

	u32, err := buf.UnpackUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 987654, u32)

	i32, err := buf.UnpackInt32()
	require.NoError(t, err)
	assert.EqualValues(t, -987654, i32)

	b, err := buf.UnpackBool()
	require.NoError(t, err)
	assert.True(t, b)

	sz, err := buf.UnpackSize()
	require.NoError(t, err)
	assert.EqualValues(t, 42, sz)

	s, err := buf.UnpackString()
	require.NoError(t, err)
	assert.Equal(t, "node01", s)

	bo, err := buf.UnpackByteObject()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, bo)

	assert.Equal(t, 0, buf.Remaining())
}

func TestBufferReadPastEnd(t *testing.T) {
	buf := NewBuffer()
	buf.Load([]byte{1})
	_, err := buf.UnpackUint16()
	assert.ErrorIs(t, err, ErrReadPastEnd)

	buf.Load([]byte("no-terminator"))
	_, err = buf.UnpackString()
	assert.ErrorIs(t, err, ErrReadPastEnd)
}
