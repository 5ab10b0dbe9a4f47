// ABOUTME: Object headers, addresses and the body views handed to descriptor procedures
// ABOUTME: Bodies are raw little-endian storage; slots are read and written through View

package gc

import (
	"encoding/binary"
	"fmt"
)

// Addr is the address of an object inside a space. Zero is null.
type Addr uint64

// WordSize is the width in bytes of a pointer slot.
const WordSize = 8

// Align rounds n up to a multiple of WordSize.
func Align(n uint64) uint64 {
	return (n + WordSize - 1) &^ (WordSize - 1)
}

// State tracks an object through one collection cycle.
type State uint8

const (
	Unmarked State = iota
	Marked
	Relocated
	Retained
	Finalized
	Reclaimed
)

var stateNames = [...]string{
	Unmarked:  "unmarked",
	Marked:    "marked",
	Relocated: "relocated",
	Retained:  "retained",
	Finalized: "finalized",
	Reclaimed: "reclaimed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Header is the collector-visible prefix of every object. Type is the
// identity of the descriptor that produced the object.
type Header struct {
	Type  *Descriptor
	Size  uint32
	State State
}

// Object is a heap object: its current address, header and body storage.
type Object struct {
	Addr Addr
	Header
	Body []byte
}

// NewObject builds an object of size bytes for d with a zeroed body.
// Storage placement is the caller's business; NewObject never picks an address.
func NewObject(addr Addr, d *Descriptor, size uint32) (*Object, error) {
	if err := d.CheckSize(size); err != nil {
		return nil, err
	}
	return &Object{
		Addr:   addr,
		Header: Header{Type: d, Size: size},
		Body:   make([]byte, size),
	}, nil
}

// View returns a view over the whole body.
func (o *Object) View() View {
	return View{addr: o.Addr, body: o.Body}
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%#x", o.Type, uint64(o.Addr))
}

// View is a window onto an object body. Element arrays hand sub-views of the
// enclosing object to their element procedures, so a view remembers its
// offset inside the object it was cut from.
type View struct {
	addr Addr
	off  uint32
	body []byte
}

// NewView wraps body as the view of the object at addr.
func NewView(addr Addr, body []byte) View {
	return View{addr: addr, body: body}
}

// Addr is the address of the enclosing object.
func (v View) Addr() Addr { return v.addr }

// Offset is the offset of this view inside the enclosing object.
func (v View) Offset() uint32 { return v.off }

// Len is the size of the view in bytes.
func (v View) Len() uint32 { return uint32(len(v.body)) }

// Bytes exposes the underlying storage.
func (v View) Bytes() []byte { return v.body }

// Sub returns the n-byte view starting at off.
func (v View) Sub(off, n uint32) View {
	return View{addr: v.addr, off: v.off + off, body: v.body[off : off+n : off+n]}
}

// Word reads the little-endian word at off.
func (v View) Word(off uint32) uint64 {
	return binary.LittleEndian.Uint64(v.body[off:])
}

// SetWord writes w at off.
func (v View) SetWord(off uint32, w uint64) {
	binary.LittleEndian.PutUint64(v.body[off:], w)
}

// Ptr reads the pointer slot at off.
func (v View) Ptr(off uint32) Addr { return Addr(v.Word(off)) }

// SetPtr writes the pointer slot at off.
func (v View) SetPtr(off uint32, a Addr) { v.SetWord(off, uint64(a)) }

// StringSlot reads the string slot at off: target address and length.
func (v View) StringSlot(off uint32) (Addr, uint32) {
	return v.Ptr(off), uint32(v.Word(off + WordSize))
}

// SetStringSlot writes the string slot at off.
func (v View) SetStringSlot(off uint32, a Addr, n uint32) {
	v.SetPtr(off, a)
	v.SetWord(off+WordSize, uint64(n))
}
