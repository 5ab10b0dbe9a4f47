// ABOUTME: Type families that parameterize the shared procedures: slot layouts, element arrays, blobs, refs
// ABOUTME: A family is a closed tagged union; the registry validates it once at registration

package gc

import (
	"fmt"
	"sort"
)

// Family is the typed parameter block of a descriptor. The set of families
// is closed: *Layout, ElementsOf, Blob and RefArray.
type Family interface {
	repeats() bool
	// slots is the static slot count for an n-byte instance.
	slots(d *Descriptor, n uint32) int
}

// SlotKind classifies a slot inside a layout.
type SlotKind uint8

const (
	// SlotPtr is an owning pointer.
	SlotPtr SlotKind = iota + 1
	// SlotWeak is a back reference: looked up, never marked through.
	SlotWeak
	// SlotString is an address and a length naming pointer-free bytes.
	SlotString
	// SlotRef is a runtime-typed ref whose tag decides whether it is followed.
	SlotRef
)

func (k SlotKind) String() string {
	switch k {
	case SlotPtr:
		return "ptr"
	case SlotWeak:
		return "weak"
	case SlotString:
		return "string"
	case SlotRef:
		return "ref"
	}
	return fmt.Sprintf("slot(%d)", uint8(k))
}

// Width is the number of bytes the slot occupies.
func (k SlotKind) Width() uint32 {
	switch k {
	case SlotPtr, SlotWeak:
		return WordSize
	case SlotString, SlotRef:
		return 2 * WordSize
	}
	return 0
}

// Slot is one reference-bearing field of a layout.
type Slot struct {
	Off  uint32
	Kind SlotKind
}

// Slot constructors, one per kind.
func PtrAt(off uint32) Slot    { return Slot{Off: off, Kind: SlotPtr} }
func WeakAt(off uint32) Slot   { return Slot{Off: off, Kind: SlotWeak} }
func StringAt(off uint32) Slot { return Slot{Off: off, Kind: SlotString} }
func RefAt(off uint32) Slot    { return Slot{Off: off, Kind: SlotRef} }

// Layout lists the reference slots of a fixed-size structure, in
// enumeration order. Bytes outside the slots are payload.
type Layout struct {
	Slots []Slot
}

// Slots builds a layout family.
func Slots(slots ...Slot) *Layout {
	return &Layout{Slots: slots}
}

func (*Layout) repeats() bool { return false }

func (l *Layout) slots(*Descriptor, uint32) int { return len(l.Slots) }

// validated returns a private copy of l after checking it fits size bytes.
func (l *Layout) validated(name string, size uint32) *Layout {
	out := &Layout{Slots: append([]Slot(nil), l.Slots...)}

	byOff := append([]Slot(nil), out.Slots...)
	sort.Slice(byOff, func(i, j int) bool { return byOff[i].Off < byOff[j].Off })

	var end uint32
	for i, s := range byOff {
		w := s.Kind.Width()
		if w == 0 {
			violation(ErrMalformed, "%s: slot at %d has unknown kind %d", name, s.Off, s.Kind)
		}
		if s.Off%WordSize != 0 {
			violation(ErrMalformed, "%s: slot at %d is not word aligned", name, s.Off)
		}
		if uint64(s.Off)+uint64(w) > uint64(size) {
			violation(ErrMalformed, "%s: %s slot at %d overruns %d-byte instance", name, s.Kind, s.Off, size)
		}
		if i > 0 && s.Off < end {
			violation(ErrMalformed, "%s: slot at %d overlaps previous slot", name, s.Off)
		}
		end = s.Off + w
	}
	return out
}

// ElementsOf is a homogeneous array of Elem. Instances are any whole number
// of elements. Each element is handled by Elem's own procedures.
type ElementsOf struct {
	Elem *Descriptor
}

func (ElementsOf) repeats() bool { return true }

func (e ElementsOf) slots(d *Descriptor, n uint32) int {
	per := e.Elem.SlotCount(e.Elem.size)
	if per < 0 {
		return -1
	}
	return int(n/d.size) * per
}

// Blob is pointer-free byte storage, such as string bodies.
type Blob struct{}

func (Blob) repeats() bool { return true }

func (Blob) slots(*Descriptor, uint32) int { return 0 }

// RefArray is an array of runtime-typed refs.
type RefArray struct{}

func (RefArray) repeats() bool { return true }

func (RefArray) slots(_ *Descriptor, n uint32) int { return int(n / RefSize) }

// SlotCount is the number of results, End excluded, that enumeration of an
// n-byte instance must produce. It is -1 when the type supplies its own
// EnumPtrs and the count cannot be known statically.
func (d *Descriptor) SlotCount(n uint32) int {
	if d.procs.EnumPtrs != nil {
		return -1
	}
	if d.shared != nil && d.shared.EnumPtrs != nil && !d.shared.builtin {
		return -1
	}
	if d.shared == Leaf || d.family == nil || d.enumPtrsProc() == nil {
		return 0
	}
	return d.family.slots(d, n)
}
