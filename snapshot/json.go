// ABOUTME: JSON fixture codec for hand-written heaps
// ABOUTME: Bodies are given as little-endian words, text or base64 bytes

package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/space"
)

// JSON is the fixture codec.
type JSON struct{}

type jsonImage struct {
	Space   *uuid.UUID   `json:"space,omitempty"`
	Base    uint64       `json:"base,omitempty"`
	Roots   []gc.Addr    `json:"roots"`
	Objects []jsonObject `json:"objects"`
}

// jsonObject sets its body from exactly one of Words, Text or Body. Size
// pads the body with zeros and defaults to the content length.
type jsonObject struct {
	Addr  gc.Addr  `json:"addr"`
	Type  string   `json:"type"`
	Size  uint32   `json:"size,omitempty"`
	Words []uint64 `json:"words,omitempty"`
	Text  *string  `json:"text,omitempty"`
	Body  []byte   `json:"body,omitempty"`
}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// CanDecode checks for a JSON object. The binary codecs start with magic
// bytes that can never open a JSON document, so the first byte decides.
func (JSON) CanDecode(r io.Reader) bool {
	buf := make([]byte, sniffLen)
	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	head := bytes.TrimLeft(buf[:n], " \t\r\n")
	return len(head) > 0 && head[0] == '{'
}

// Decode implements Codec.
func (JSON) Decode(r io.Reader) (*space.Image, error) {
	var doc jsonImage
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	img := &space.Image{Base: doc.Base, Roots: doc.Roots}
	if doc.Space != nil {
		img.Space = *doc.Space
	}
	for i, obj := range doc.Objects {
		if obj.Addr == 0 {
			return nil, fmt.Errorf("%w: object at index %d missing addr", ErrMalformedSnapshot, i)
		}
		if obj.Type == "" {
			return nil, fmt.Errorf("%w: object %#x missing type", ErrMalformedSnapshot, uint64(obj.Addr))
		}
		body, err := obj.body()
		if err != nil {
			return nil, fmt.Errorf("%w: object %#x: %v", ErrMalformedSnapshot, uint64(obj.Addr), err)
		}
		img.Objects = append(img.Objects, space.ImageObject{Addr: obj.Addr, Type: obj.Type, Body: body})
	}
	return img, nil
}

func (o jsonObject) body() ([]byte, error) {
	var content []byte
	given := 0
	if o.Words != nil {
		given++
		content = make([]byte, len(o.Words)*gc.WordSize)
		for i, w := range o.Words {
			binary.LittleEndian.PutUint64(content[i*gc.WordSize:], w)
		}
	}
	if o.Text != nil {
		given++
		content = []byte(*o.Text)
	}
	if o.Body != nil {
		given++
		content = o.Body
	}
	if given > 1 {
		return nil, fmt.Errorf("more than one of words, text and body")
	}

	size := o.Size
	if size == 0 {
		size = uint32(len(content))
	}
	if size == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if uint32(len(content)) > size {
		return nil, fmt.Errorf("%d content bytes exceed size %d", len(content), size)
	}
	body := make([]byte, size)
	copy(body, content)
	return body, nil
}

// Encode writes an indented fixture. Word-sized bodies are written as
// words, other valid UTF-8 bodies as text.
func (JSON) Encode(w io.Writer, img *space.Image) error {
	id := img.Space
	doc := jsonImage{Space: &id, Base: img.Base, Roots: img.Roots}
	if doc.Roots == nil {
		doc.Roots = []gc.Addr{}
	}
	doc.Objects = []jsonObject{}
	for _, obj := range img.Objects {
		rec := jsonObject{Addr: obj.Addr, Type: obj.Type}
		switch {
		case len(obj.Body)%gc.WordSize == 0:
			rec.Words = make([]uint64, len(obj.Body)/gc.WordSize)
			for i := range rec.Words {
				rec.Words[i] = binary.LittleEndian.Uint64(obj.Body[i*gc.WordSize:])
			}
		case utf8.Valid(obj.Body):
			text := string(obj.Body)
			rec.Text = &text
		default:
			rec.Body = obj.Body
		}
		doc.Objects = append(doc.Objects, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func init() {
	Register(JSON{})
}
