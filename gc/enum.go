// ABOUTME: Enumeration protocol used by the mark phase
// ABOUTME: Index 0, 1, ... yields one classified reference each until End

package gc

import "fmt"

// Kind classifies one enumeration result.
type Kind uint8

const (
	// KindEnd terminates enumeration.
	KindEnd Kind = iota
	// KindPtr is an exact owning pointer; Addr may be 0 for a null slot.
	KindPtr
	// KindWeak is a back reference the mark phase must not trace.
	KindWeak
	// KindRef is a runtime-typed ref; Tag decides whether it is traced.
	KindRef
	// KindBytes is a byte range with no embedded references.
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "end"
	case KindPtr:
		return "ptr"
	case KindWeak:
		return "weak"
	case KindRef:
		return "ref"
	case KindBytes:
		return "bytes"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// EnumPtr is the result of one enumeration step. The zero value is End.
type EnumPtr struct {
	Kind Kind
	Addr Addr
	// Size is the length of a byte range, for KindBytes and string refs.
	Size uint32
	// Tag is the ref type, for KindRef.
	Tag RefType
}

// EnumObj reports an owning pointer.
func EnumObj(a Addr) EnumPtr { return EnumPtr{Kind: KindPtr, Addr: a} }

// EnumWeak reports a back reference.
func EnumWeak(a Addr) EnumPtr { return EnumPtr{Kind: KindWeak, Addr: a} }

// EnumBytes reports a byte range. An empty range is reported as a null
// pointer so that every slot still yields exactly one result.
func EnumBytes(a Addr, n uint32) EnumPtr {
	if a == 0 || n == 0 {
		return EnumObj(0)
	}
	return EnumPtr{Kind: KindBytes, Addr: a, Size: n}
}

// Done reports whether this is the termination marker.
func (e EnumPtr) Done() bool { return e.Kind == KindEnd }

// Traced reports whether the mark phase must mark the target.
func (e EnumPtr) Traced() bool {
	if e.Addr == 0 {
		return false
	}
	switch e.Kind {
	case KindPtr, KindBytes:
		return true
	case KindRef:
		return e.Tag.Pointer()
	}
	return false
}

// Leaf reports whether the target is a byte range whose contents are never
// enumerated.
func (e EnumPtr) Leaf() bool {
	return e.Kind == KindBytes || e.Kind == KindRef && e.Tag == RefString
}

func (e EnumPtr) String() string {
	switch e.Kind {
	case KindEnd:
		return "end"
	case KindBytes:
		return fmt.Sprintf("bytes(%#x,%d)", uint64(e.Addr), e.Size)
	case KindRef:
		return fmt.Sprintf("ref(%s,%#x)", e.Tag, uint64(e.Addr))
	}
	return fmt.Sprintf("%s(%#x)", e.Kind, uint64(e.Addr))
}

// Enumerate returns the index'th reference of the object viewed by v.
func (d *Descriptor) Enumerate(ctx *Context, v View, index int) EnumPtr {
	if p := d.enumPtrsProc(); p != nil {
		return p(ctx, v, index, d)
	}
	return EnumPtr{}
}

// Walk enumerates v from index 0 until End or until fn returns false.
// It returns the number of results, End excluded, that fn saw.
func Walk(ctx *Context, d *Descriptor, v View, fn func(index int, ep EnumPtr) bool) int {
	for i := 0; ; i++ {
		ep := d.Enumerate(ctx, v, i)
		if ep.Done() || !fn(i, ep) {
			return i
		}
	}
}

// Childless reports whether enumeration ends immediately.
func (d *Descriptor) Childless(ctx *Context, v View) bool {
	return d.Enumerate(ctx, v, 0).Done()
}

func (s Slot) enum(v View) EnumPtr {
	switch s.Kind {
	case SlotPtr:
		return EnumObj(v.Ptr(s.Off))
	case SlotWeak:
		return EnumWeak(v.Ptr(s.Off))
	case SlotString:
		return EnumBytes(v.StringSlot(s.Off))
	case SlotRef:
		return enumRef(v, s.Off)
	}
	return EnumPtr{}
}

func enumLayout(_ *Context, v View, index int, d *Descriptor) EnumPtr {
	l := d.family.(*Layout)
	if index < 0 || index >= len(l.Slots) {
		return EnumPtr{}
	}
	return l.Slots[index].enum(v)
}

func enumElements(ctx *Context, v View, index int, d *Descriptor) EnumPtr {
	elem := d.family.(ElementsOf).Elem
	if index < 0 {
		return EnumPtr{}
	}
	if l, ok := elem.staticLayout(); ok {
		if len(l.Slots) == 0 {
			return EnumPtr{}
		}
		i, j := uint32(index/len(l.Slots)), index%len(l.Slots)
		if (i+1)*elem.size > v.Len() {
			return EnumPtr{}
		}
		return l.Slots[j].enum(v.Sub(i*elem.size, elem.size))
	}

	p := elem.enumPtrsProc()
	if p == nil {
		return EnumPtr{}
	}
	for base := uint32(0); base+elem.size <= v.Len(); base += elem.size {
		sub := v.Sub(base, elem.size)
		for j := 0; ; j++ {
			ep := p(ctx, sub, j, elem)
			if ep.Done() {
				break
			}
			if index == 0 {
				return ep
			}
			index--
		}
	}
	return EnumPtr{}
}

func enumRefs(_ *Context, v View, index int, _ *Descriptor) EnumPtr {
	if index < 0 || uint32(index+1)*RefSize > v.Len() {
		return EnumPtr{}
	}
	return enumRef(v, uint32(index)*RefSize)
}
