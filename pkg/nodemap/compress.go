package nodemap

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compressor is the external compression provider this module builds
// on. CompressBlock returns used=false when the compressed form is
// not worth shipping — the caller then packs the original bytes.
// DecompressBlock always produces exactly expectedSize bytes on
// success.
type Compressor interface {
	CompressBlock(in []byte) (out []byte, used bool)
	DecompressBlock(in []byte, expectedSize int) ([]byte, error)
}

// zstdCompressor is the module's sole Compressor implementation,
// backed by klauspost/compress/zstd.
type zstdCompressor struct {
	encOnce sync.Once
	decOnce sync.Once
	enc     *zstd.Encoder
	decErr  error
	encErr  error
	dec     *zstd.Decoder
}

// NewCompressor returns the module's default Compressor.
func NewCompressor() Compressor {
	return &zstdCompressor{}
}

func (c *zstdCompressor) encoder() (*zstd.Encoder, error) {
	c.encOnce.Do(func() {
		c.enc, c.encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return c.enc, c.encErr
}

func (c *zstdCompressor) decoder() (*zstd.Decoder, error) {
	c.decOnce.Do(func() {
		c.dec, c.decErr = zstd.NewReader(nil)
	})
	return c.dec, c.decErr
}

// CompressBlock opts out (used=false) whenever compression fails or
// does not shrink the payload.
func (c *zstdCompressor) CompressBlock(in []byte) ([]byte, bool) {
	if len(in) == 0 {
		return nil, false
	}
	enc, err := c.encoder()
	if err != nil {
		return nil, false
	}
	out := enc.EncodeAll(in, nil)
	if len(out) >= len(in) {
		return nil, false
	}
	return out, true
}

func (c *zstdCompressor) DecompressBlock(in []byte, expectedSize int) ([]byte, error) {
	dec, err := c.decoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder unavailable: %w", err)
	}
	out, err := dec.DecodeAll(in, make([]byte, 0, expectedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("zstd decompress: expected %d bytes, got %d", expectedSize, len(out))
	}
	return out, nil
}
