package nodemap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressedBlobVariantARoundTrip(t *testing.T) {
	buf := NewBuffer()
	comp := NewCompressor()

	payload := bytes.Repeat([]byte("node0,node1,node2,"), 200) // compressible
	require.NoError(t, writeBlobA(buf, comp, payload, "test"))

	raw := buf.Unload()
	buf.Load(raw)

	got, err := readBlobA(buf, comp, "test")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestCompressedBlobVariantAIncompressible(t *testing.T) {
	buf := NewBuffer()
	comp := NewCompressor()

	payload := []byte{0x01, 0x02, 0x03}
	require.NoError(t, writeBlobA(buf, comp, payload, "test"))

	raw := buf.Unload()
	buf.Load(raw)

	got, err := readBlobA(buf, comp, "test")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestCompressedBlobVariantBCarriesWidth(t *testing.T) {
	buf := NewBuffer()
	comp := NewCompressor()

	payload := bytes.Repeat([]byte{0x00, 0x01, 0xFF}, 300)
	require.NoError(t, writeBlobB(buf, comp, payload, 2, "test"))

	raw := buf.Unload()
	buf.Load(raw)

	got, nbytes, err := readBlobB(buf, comp, "test")
	require.NoError(t, err)
	require.EqualValues(t, 2, nbytes)
	require.Equal(t, payload, got)
}

func TestCompressedBlobDecompressFailure(t *testing.T) {
	buf := NewBuffer()
	comp := NewCompressor()

	require.NoError(t, buf.PackBool(true))
	require.NoError(t, buf.PackSize(100))
	require.NoError(t, buf.PackByteObject([]byte("not-actually-zstd")))

	raw := buf.Unload()
	buf.Load(raw)

	_, err := readBlobA(buf, comp, "test")
	require.Error(t, err)
	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, ErrDecompressFail, nerr.Kind)
}
