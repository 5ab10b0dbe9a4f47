// ABOUTME: Relocation protocol used by the fix-up phase after compaction
// ABOUTME: Slots are forwarded through the context table at most once per cycle

package gc

// Relocate rewrites every reference of the object viewed by v to its
// post-compaction address. Null slots stay null, a slot already forwarded this
// cycle is left alone, and a weak slot whose target did not survive is cleared.
func (d *Descriptor) Relocate(ctx *Context, v View) {
	ctx.mustBe(PhaseRelocate, "relocate %s", d)
	if p := d.relocPtrsProc(); p != nil {
		p(ctx, v, d)
	}
}

// RelocPtr forwards the strong pointer slot at off. Hand-written RelocPtrs
// procedures use it so they share the per-slot bookkeeping.
func RelocPtr(ctx *Context, v View, off uint32) {
	old := v.Ptr(off)
	if old == 0 || !ctx.claim(v, off) {
		return
	}
	v.SetPtr(off, ctx.Forward(old))
}

// RelocWeak forwards the weak slot at off, or clears it when the target is
// not surviving the cycle.
func RelocWeak(ctx *Context, v View, off uint32) {
	old := v.Ptr(off)
	if old == 0 || !ctx.claim(v, off) {
		return
	}
	if to, ok := ctx.Lookup(old); ok {
		v.SetPtr(off, to)
		return
	}
	v.SetPtr(off, 0)
}

func (s Slot) reloc(ctx *Context, v View) {
	switch s.Kind {
	case SlotString:
		// An empty string does not keep its address alive.
		if _, n := v.StringSlot(s.Off); n == 0 {
			RelocWeak(ctx, v, s.Off)
			return
		}
		RelocPtr(ctx, v, s.Off)
	case SlotPtr:
		RelocPtr(ctx, v, s.Off)
	case SlotWeak:
		RelocWeak(ctx, v, s.Off)
	case SlotRef:
		relocRef(ctx, v, s.Off)
	}
}

func relocLayout(ctx *Context, v View, d *Descriptor) {
	for _, s := range d.family.(*Layout).Slots {
		s.reloc(ctx, v)
	}
}

func relocElements(ctx *Context, v View, d *Descriptor) {
	elem := d.family.(ElementsOf).Elem
	p := elem.relocPtrsProc()
	if p == nil {
		return
	}
	for base := uint32(0); base+elem.size <= v.Len(); base += elem.size {
		p(ctx, v.Sub(base, elem.size), elem)
	}
}

func relocRefs(ctx *Context, v View, _ *Descriptor) {
	for off := uint32(0); off+RefSize <= v.Len(); off += RefSize {
		relocRef(ctx, v, off)
	}
}
