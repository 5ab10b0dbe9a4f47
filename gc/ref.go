// ABOUTME: Runtime-typed ref slots: a tag word and a value word
// ABOUTME: The tag decides whether the value is an address the collector must follow

package gc

import "fmt"

// RefSize is the width of a ref slot.
const RefSize = 2 * WordSize

// RefType is the type carried in the low byte of a ref tag.
type RefType uint8

const (
	RefNull RefType = iota
	RefInteger
	RefBoolean
	RefStruct
	RefString
)

func (t RefType) String() string {
	switch t {
	case RefNull:
		return "null"
	case RefInteger:
		return "integer"
	case RefBoolean:
		return "boolean"
	case RefStruct:
		return "struct"
	case RefString:
		return "string"
	}
	return fmt.Sprintf("reftype(%d)", uint8(t))
}

// Pointer reports whether a ref of this type holds an address.
func (t RefType) Pointer() bool {
	return t == RefStruct || t == RefString
}

// Tag word layout: bits 0-7 type, bit 8 relocated, bits 32-63 string length.
const (
	refTypeMask  = 0xff
	refRelocated = 1 << 8
	refLenShift  = 32
)

// Ref reads the ref at off. Length is only meaningful for strings.
func (v View) Ref(off uint32) (t RefType, value uint64, length uint32) {
	tag := v.Word(off)
	return RefType(tag & refTypeMask), v.Word(off + WordSize), uint32(tag >> refLenShift)
}

// SetRef stores a ref at off with its relocated bit clear.
func (v View) SetRef(off uint32, t RefType, value uint64, length uint32) {
	v.SetWord(off, uint64(t)|uint64(length)<<refLenShift)
	v.SetWord(off+WordSize, value)
}

func (v View) refRelocated(off uint32) bool {
	return v.Word(off)&refRelocated != 0
}

func (v View) setRefRelocated(off uint32, on bool) {
	tag := v.Word(off)
	if on {
		tag |= refRelocated
	} else {
		tag &^= refRelocated
	}
	v.SetWord(off, tag)
}

func enumRef(v View, off uint32) EnumPtr {
	t, value, n := v.Ref(off)
	if !t.Pointer() {
		return EnumPtr{Kind: KindRef, Tag: t}
	}
	if t == RefString && n == 0 {
		return EnumPtr{Kind: KindRef, Tag: t}
	}
	return EnumPtr{Kind: KindRef, Tag: t, Addr: Addr(value), Size: n}
}

// relocRef forwards a pointer-bearing ref once per cycle. The relocated bit
// lives in the tag and is cleared by the ref family's ClearMarks.
func relocRef(ctx *Context, v View, off uint32) {
	t, value, n := v.Ref(off)
	if !t.Pointer() || value == 0 || v.refRelocated(off) {
		return
	}
	to, ok := ctx.Lookup(Addr(value))
	switch {
	case ok:
	case t == RefString && n == 0:
		// Empty strings are never traced, so their address may be stale.
	default:
		to = ctx.Forward(Addr(value))
	}
	v.SetWord(off+WordSize, uint64(to))
	v.setRefRelocated(off, true)
}
