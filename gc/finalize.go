// ABOUTME: Finalization hook run once per unreachable object before reclamation
// ABOUTME: Only legal after marking and relocation are complete for the cycle

package gc

// Finalize runs the finalization procedure of an unreachable object. It
// reports false, without running anything, when the object was already
// finalized this cycle.
func (d *Descriptor) Finalize(ctx *Context, v View) bool {
	ctx.mustBe(PhaseFinalize, "finalize %s", d)
	if ctx.Survives(v.Addr()) {
		violation(ErrFinalizeLive, "%s@%#x", d, uint64(v.Addr()))
	}
	if !ctx.finalizeOnce(v.Addr()) {
		return false
	}
	if p := d.finalizeProc(); p != nil {
		p(ctx, v, d)
	}
	return true
}
