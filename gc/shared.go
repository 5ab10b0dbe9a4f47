// ABOUTME: Shared procedure bundles and per-procedure resolution order
// ABOUTME: Own slot first, then the shared bundle, then a no-op

package gc

// SharedProcs is a bundle of procedures reused by many structurally
// equivalent types. Family bundles read their parameters from the
// descriptor they are invoked for.
type SharedProcs struct {
	Name string
	Procs

	// builtin bundles have enumeration counts derivable from the family.
	builtin bool
}

// NewSharedProcs builds a bundle for types that share hand-written procedures.
func NewSharedProcs(name string, p Procs) *SharedProcs {
	return &SharedProcs{Name: name, Procs: p}
}

var (
	// Leaf is the bundle for types with no embedded references and nothing
	// to finalize.
	Leaf = &SharedProcs{
		Name:    "leaf",
		builtin: true,
		Procs: Procs{
			ClearMarks: func(View, *Descriptor) {},
			EnumPtrs:   func(*Context, View, int, *Descriptor) EnumPtr { return EnumPtr{} },
			RelocPtrs:  func(*Context, View, *Descriptor) {},
			Finalize:   func(*Context, View, *Descriptor) {},
		},
	}

	// LayoutProcs serves every *Layout family.
	LayoutProcs = &SharedProcs{
		Name:    "layout",
		builtin: true,
		Procs: Procs{
			ClearMarks: clearLayout,
			EnumPtrs:   enumLayout,
			RelocPtrs:  relocLayout,
		},
	}

	// ElementProcs serves every ElementsOf family.
	ElementProcs = &SharedProcs{
		Name:    "elements",
		builtin: true,
		Procs: Procs{
			ClearMarks: clearElements,
			EnumPtrs:   enumElements,
			RelocPtrs:  relocElements,
			Finalize:   finalizeElements,
		},
	}

	// RefProcs serves every RefArray family.
	RefProcs = &SharedProcs{
		Name:    "refs",
		builtin: true,
		Procs: Procs{
			ClearMarks: clearRefs,
			EnumPtrs:   enumRefs,
			RelocPtrs:  relocRefs,
		},
	}
)

// NewLeaf returns the spec of a pointer-free type of size bytes.
func NewLeaf(name string, size uint32) Spec {
	return Spec{Name: name, Size: size, Shared: Leaf}
}

func (d *Descriptor) clearMarksProc() ClearMarksFunc {
	if d.procs.ClearMarks != nil {
		return d.procs.ClearMarks
	}
	if d.shared != nil {
		return d.shared.ClearMarks
	}
	return nil
}

func (d *Descriptor) enumPtrsProc() EnumPtrsFunc {
	if d.procs.EnumPtrs != nil {
		return d.procs.EnumPtrs
	}
	if d.shared != nil {
		return d.shared.EnumPtrs
	}
	return nil
}

func (d *Descriptor) relocPtrsProc() RelocPtrsFunc {
	if d.procs.RelocPtrs != nil {
		return d.procs.RelocPtrs
	}
	if d.shared != nil {
		return d.shared.RelocPtrs
	}
	return nil
}

func (d *Descriptor) finalizeProc() FinalizeFunc {
	if d.procs.Finalize != nil {
		return d.procs.Finalize
	}
	if d.shared != nil {
		return d.shared.Finalize
	}
	return nil
}

// ClearMarks clears in-body mark state at the start of a cycle.
func (d *Descriptor) ClearMarks(v View) {
	if p := d.clearMarksProc(); p != nil {
		p(v, d)
	}
}

// HasFinalizer reports whether Finalize does anything for this type.
func (d *Descriptor) HasFinalizer() bool {
	if d.procs.Finalize != nil {
		return true
	}
	if d.shared == ElementProcs {
		return d.family.(ElementsOf).Elem.HasFinalizer()
	}
	return d.shared != nil && d.shared != Leaf && d.shared.Finalize != nil
}

func clearLayout(v View, d *Descriptor) {
	for _, s := range d.family.(*Layout).Slots {
		if s.Kind == SlotRef {
			v.setRefRelocated(s.Off, false)
		}
	}
}

func clearElements(v View, d *Descriptor) {
	elem := d.family.(ElementsOf).Elem
	p := elem.clearMarksProc()
	if p == nil {
		return
	}
	for base := uint32(0); base+elem.size <= v.Len(); base += elem.size {
		p(v.Sub(base, elem.size), elem)
	}
}

// finalizeElements runs the element finalizer once per element of a dead
// array.
func finalizeElements(ctx *Context, v View, d *Descriptor) {
	elem := d.family.(ElementsOf).Elem
	p := elem.finalizeProc()
	if p == nil {
		return
	}
	for base := uint32(0); base+elem.size <= v.Len(); base += elem.size {
		p(ctx, v.Sub(base, elem.size), elem)
	}
}

// staticLayout reports the layout enumeration can index directly: a
// layout family served by the builtin layout procedures.
func (d *Descriptor) staticLayout() (*Layout, bool) {
	l, ok := d.family.(*Layout)
	if !ok || d.procs.EnumPtrs != nil || d.shared != LayoutProcs {
		return nil, false
	}
	return l, true
}

func clearRefs(v View, _ *Descriptor) {
	for off := uint32(0); off+RefSize <= v.Len(); off += RefSize {
		v.setRefRelocated(off, false)
	}
}
