// ABOUTME: CBOR snapshot codec using core deterministic encoding
// ABOUTME: Streams start with the self-describe tag, which doubles as format magic

package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/prateek/gcdesc/space"
)

// cborMagic is tag 55799, the CBOR self-describe marker.
var cborMagic = []byte{0xd9, 0xd9, 0xf7}

// CBOR is the compact binary codec.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the codec with deterministic encoding, so equal images
// encode to equal bytes.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	// The default array limit is well below the object count of a large heap.
	dec, err := cbor.DecOptions{
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      math.MaxInt32,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBOR{enc: enc, dec: dec}, nil
}

// Name implements Codec.
func (*CBOR) Name() string { return "cbor" }

// CanDecode checks for the self-describe tag.
func (*CBOR) CanDecode(r io.Reader) bool {
	return hasPrefix(r, cborMagic)
}

// Decode implements Codec.
func (c *CBOR) Decode(r io.Reader) (*space.Image, error) {
	magic := make([]byte, len(cborMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrMalformedSnapshot, err)
	}
	if !bytes.Equal(magic, cborMagic) {
		return nil, fmt.Errorf("%w: missing CBOR self-describe tag", ErrMalformedSnapshot)
	}
	var img space.Image
	if err := c.dec.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return &img, nil
}

// Encode implements Codec.
func (c *CBOR) Encode(w io.Writer, img *space.Image) error {
	if _, err := w.Write(cborMagic); err != nil {
		return err
	}
	return c.enc.NewEncoder(w).Encode(img)
}

func hasPrefix(r io.Reader, magic []byte) bool {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return false
	}
	return bytes.Equal(head, magic)
}

func init() {
	c, err := NewCBOR()
	if err != nil {
		panic(err)
	}
	Register(c)
}
