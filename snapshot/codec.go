// ABOUTME: Codec interface and registry for space snapshot formats
// ABOUTME: Selects a codec by sniffing the leading bytes of a stream

// Package snapshot reads and writes space images in several formats: JSON
// fixtures for hand-written heaps, and CBOR or zstd-compressed CBOR for
// compact dumps. Codecs register themselves and are chosen by sniffing.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

var (
	// ErrNoCodec is returned when no codec recognizes a stream or name.
	ErrNoCodec = errors.New("no codec found for snapshot format")

	// ErrMalformedSnapshot is returned for streams a codec recognizes but
	// cannot decode into a consistent image.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// sniffLen is how much of a stream CanDecode gets to look at.
const sniffLen = 512

// Codec encodes and decodes space images.
type Codec interface {
	// Name identifies the format, as used by Lookup and the CLI
	Name() string

	// CanDecode checks the leading bytes of a stream. It must not need
	// more than a short preview to decide.
	CanDecode(r io.Reader) bool

	// Decode reads one image from r
	Decode(r io.Reader) (*space.Image, error)

	// Encode writes img to w
	Encode(w io.Writer, img *space.Image) error
}

type codecRegistry struct {
	mu     sync.RWMutex
	codecs []Codec
}

var registry = &codecRegistry{}

// Register adds a codec. Codecs are sniffed in registration order.
func Register(c Codec) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.codecs = append(registry.codecs, c)
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	for _, c := range registry.codecs {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoCodec, name)
}

// Names lists the registered codec names, sorted.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.codecs))
	for _, c := range registry.codecs {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// Decode sniffs the format of r and decodes it with the first codec that
// recognizes it.
func Decode(r io.Reader) (*space.Image, Codec, error) {
	preview := make([]byte, sniffLen)
	n, err := io.ReadFull(r, preview)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, nil, err
	}
	preview = preview[:n]

	registry.mu.RLock()
	codecs := append([]Codec(nil), registry.codecs...)
	registry.mu.RUnlock()

	for _, c := range codecs {
		if c.CanDecode(bytes.NewReader(preview)) {
			img, err := c.Decode(io.MultiReader(bytes.NewReader(preview), r))
			if err != nil {
				return nil, c, fmt.Errorf("%s: %w", c.Name(), err)
			}
			return img, c, nil
		}
	}
	return nil, nil, ErrNoCodec
}

// Open decodes a snapshot and rebuilds its space, resolving type names in reg.
func Open(r io.Reader, reg *gc.Registry, cfg space.Config, opts ...space.Option) (*space.Space, error) {
	img, _, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return space.FromImage(img, reg, cfg, opts...)
}

// Write encodes the current image of sp with the named codec.
func Write(w io.Writer, name string, sp *space.Space) error {
	c, err := Lookup(name)
	if err != nil {
		return err
	}
	return c.Encode(w, sp.Image())
}
