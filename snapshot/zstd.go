// ABOUTME: zstd-compressed CBOR snapshot codec
// ABOUTME: Detected by the zstd frame magic; the payload is a plain CBOR snapshot

package snapshot

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/prateek/gcdesc/space"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Zstd compresses the output of an inner CBOR codec.
type Zstd struct {
	inner *CBOR
	level zstd.EncoderLevel
}

// NewZstd wraps inner. Images are written at the better-compression level
// since snapshots are written once and read rarely.
func NewZstd(inner *CBOR) *Zstd {
	return &Zstd{inner: inner, level: zstd.SpeedBetterCompression}
}

// Name implements Codec.
func (*Zstd) Name() string { return "cbor+zstd" }

// CanDecode checks for a zstd frame.
func (*Zstd) CanDecode(r io.Reader) bool {
	return hasPrefix(r, zstdMagic)
}

// Decode implements Codec.
func (z *Zstd) Decode(r io.Reader) (*space.Image, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer dec.Close()
	return z.inner.Decode(dec)
}

// Encode implements Codec.
func (z *Zstd) Encode(w io.Writer, img *space.Image) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(z.level))
	if err != nil {
		return err
	}
	if err := z.inner.Encode(enc, img); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func init() {
	c, err := NewCBOR()
	if err != nil {
		panic(err)
	}
	Register(NewZstd(c))
}
