// ABOUTME: Structure type descriptors: size, diagnostic name and the four collector procedures
// ABOUTME: Descriptors are immutable after registration and compared by identity only

// Package gc defines the structure type descriptors an exact, compacting
// collector uses to find, relocate and finalize heap objects without
// reflection. Each structural type publishes one descriptor carrying its
// instance size and four procedures: ClearMarks, EnumPtrs, RelocPtrs and
// Finalize. Procedures missing on a descriptor fall back to its shared
// bundle and then to no-ops.
package gc

import "fmt"

// ID is the interned identity of a descriptor. IDs are process local and
// never reused; zero is invalid.
type ID uint32

// ClearMarksFunc clears mark state kept inside an object body.
type ClearMarksFunc func(v View, d *Descriptor)

// EnumPtrsFunc returns the index'th reference of an object, or an End result.
type EnumPtrsFunc func(ctx *Context, v View, index int, d *Descriptor) EnumPtr

// RelocPtrsFunc rewrites the references of an object to their forwarded addresses.
type RelocPtrsFunc func(ctx *Context, v View, d *Descriptor)

// FinalizeFunc releases resources held by an unreachable object before its
// storage is reclaimed. It must not allocate in the collected space, must
// not query it beyond its collection mode, and must not treat other
// collected objects as live.
type FinalizeFunc func(ctx *Context, v View, d *Descriptor)

// Procs is the closed set of collector procedures a type may supply.
type Procs struct {
	ClearMarks ClearMarksFunc
	EnumPtrs   EnumPtrsFunc
	RelocPtrs  RelocPtrsFunc
	Finalize   FinalizeFunc
}

// Spec describes a type to register.
type Spec struct {
	Name string
	// Size is the instance size in bytes. Families that repeat (element
	// arrays, blobs, ref arrays) derive it from their unit and may leave it 0.
	Size uint32
	// Shared overrides the family's default shared bundle.
	Shared *SharedProcs
	Procs  Procs
	Family Family
}

// Descriptor is the registered, immutable description of one structural type.
type Descriptor struct {
	id     ID
	name   string
	size   uint32
	shared *SharedProcs
	procs  Procs
	family Family
}

// ID returns the interned identity.
func (d *Descriptor) ID() ID { return d.id }

// Name returns the diagnostic name. Names may collide across modules.
func (d *Descriptor) Name() string { return d.name }

// Size returns the instance size, or the repeat unit for repeating families.
func (d *Descriptor) Size() uint32 { return d.size }

// Shared returns the shared procedure bundle, possibly nil.
func (d *Descriptor) Shared() *SharedProcs { return d.shared }

// Family returns the family data parameterizing the shared procedures.
func (d *Descriptor) Family() Family { return d.family }

// Procs returns the type-specific procedures as registered.
func (d *Descriptor) Procs() Procs { return d.procs }

func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", d.name, d.id)
}

// Same reports whether a and b are the same descriptor.
func Same(a, b *Descriptor) bool { return a == b }

// Repeats reports whether instances are a whole number of Size units.
func (d *Descriptor) Repeats() bool {
	return d.family != nil && d.family.repeats()
}

// CheckSize validates an object size against the descriptor.
func (d *Descriptor) CheckSize(n uint32) error {
	if d.Repeats() {
		if n == 0 || n%d.size != 0 {
			return fmt.Errorf("%w: %s: %d bytes is not a multiple of %d", ErrSizeMismatch, d, n, d.size)
		}
		return nil
	}
	if n != d.size {
		return fmt.Errorf("%w: %s: %d bytes, want %d", ErrSizeMismatch, d, n, d.size)
	}
	return nil
}

// newDescriptor validates a spec; the registry assigns the identity.
func newDescriptor(spec Spec) *Descriptor {
	d := &Descriptor{
		name:   spec.Name,
		size:   spec.Size,
		shared: spec.Shared,
		procs:  spec.Procs,
	}
	if d.name == "" {
		violation(ErrMalformed, "descriptor without a name")
	}

	switch fam := spec.Family.(type) {
	case nil:
	case *Layout:
		l := fam.validated(d.name, d.size)
		d.family = l
		if d.shared == nil && len(l.Slots) > 0 {
			d.shared = LayoutProcs
		}
	case ElementsOf:
		if fam.Elem == nil {
			violation(ErrMalformed, "%s: element array without element type", d.name)
		}
		if fam.Elem.Repeats() {
			violation(ErrMalformed, "%s: element %s is itself repeating", d.name, fam.Elem)
		}
		if fam.Elem.family != nil {
			if _, ok := fam.Elem.family.(*Layout); !ok {
				violation(ErrMalformed, "%s: element %s has no static layout", d.name, fam.Elem)
			}
		}
		if d.size != 0 && d.size != fam.Elem.size {
			violation(ErrMalformed, "%s: size %d, element size %d", d.name, d.size, fam.Elem.size)
		}
		d.size = fam.Elem.size
		d.family = fam
		if d.shared == nil {
			d.shared = ElementProcs
		}
	case Blob:
		if d.size == 0 {
			d.size = 1
		}
		d.family = fam
	case RefArray:
		if d.size != 0 && d.size != RefSize {
			violation(ErrMalformed, "%s: ref array unit must be %d bytes", d.name, RefSize)
		}
		d.size = RefSize
		d.family = fam
		if d.shared == nil {
			d.shared = RefProcs
		}
	default:
		violation(ErrMalformed, "%s: unsupported family %T", d.name, fam)
	}

	if d.size == 0 {
		violation(ErrMalformed, "%s: zero instance size", d.name)
	}
	return d
}
